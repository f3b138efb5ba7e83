package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/errors"
)

func TestExtractSlogan(t *testing.T) {
	assert.Equal(t, "Just do it", ExtractSlogan("1. Just do it"))
	assert.Equal(t, "Think different", ExtractSlogan("Think different&emsp;Apple"))
	assert.Equal(t, "Impossible is nothing", ExtractSlogan("12) Impossible is nothing\tAdidas, 2004"))
	assert.Equal(t, `"Test"`, CleanText("«Test»"))
	assert.Equal(t, "Test text", CleanText("Test&nbsp;text"))
	assert.Equal(t, "Test multiple spaces", CleanText("Test   multiple    spaces"))
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Just do it", true},
		{"Think different", true},
		{"Update your world", true},
		{"Hi", false},
		{"Бренд: Nike", false},
		{"=== Header ===", false},
		{"12345", false},
		{"!!!???", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValid(tt.text, 5), tt.text)
	}
}

func TestDetectLang(t *testing.T) {
	assert.Equal(t, "ru", DetectLang("Думай иначе", "en"))
	assert.Equal(t, "en", DetectLang("Think different", "en"))
	assert.Equal(t, "en", DetectLang("123", "en"))
}

func TestBuildCleansAndDeduplicates(t *testing.T) {
	records := []Record{
		{ID: "1", Text: "1. Just do it", Lang: "en"},
		{ID: "2", Text: "Just Do It!", Lang: "en"},
		{ID: "3", Text: "Brand: Nike", Lang: "en"},
		{ID: "4", Text: "Impossible is nothing", Lang: "en"},
		{ID: "5", Text: "Impossible is nothin", Lang: "en"},
		{ID: "6", Text: "Думай иначе", Lang: "ru"},
	}
	c, err := Build(context.Background(), records, embedding.NewHashProvider(32), BuildOptions{
		MinLength:      5,
		DedupThreshold: 0.92,
		NGramSize:      2,
	})
	require.NoError(t, err)

	ids := make([]string, 0, c.Len())
	for _, e := range c.Entries {
		ids = append(ids, e.ID)
		assert.Len(t, e.Embedding, 32)
	}
	assert.Equal(t, []string{"1", "4", "6"}, ids)
	assert.Equal(t, 1, c.Stats.Invalid)
	assert.Equal(t, 1, c.Stats.ExactDuplicates)
	assert.Equal(t, 1, c.Stats.FuzzyDuplicates)
	assert.Equal(t, 3, c.Stats.Entries)
	assert.Equal(t, 2, c.Stats.Languages["en"])

	e, ok := c.Get("1")
	require.True(t, ok)
	assert.Equal(t, "Just do it", e.Text)
	assert.Equal(t, "just do it", e.Normalized)
	assert.Equal(t, []string{"just do", "do it"}, e.NGrams)
	assert.Equal(t, 1, c.DocFreq("just"))
	assert.Equal(t, 0, c.DocFreq("unseen"))
}

func TestBuildKeepsExactKeysOfDroppedRecords(t *testing.T) {
	records := []Record{
		{ID: "s1", Text: "Obey", Lang: "en"},
		{ID: "s2", Text: "Just do it today", Lang: "en"},
		{ID: "s3", Text: "Just do it todays", Lang: "en"},
		{ID: "s4", Text: "Just Do It Today!", Lang: "en"},
		{ID: "s5", Text: "Brand: Nike", Lang: "en"},
	}
	c, err := Build(context.Background(), records, embedding.NewHashProvider(16), BuildOptions{
		MinLength:      5,
		DedupThreshold: 0.9,
		NGramSize:      2,
	})
	require.NoError(t, err)

	require.Len(t, c.Entries, 1)
	assert.Equal(t, "s2", c.Entries[0].ID)
	assert.Equal(t, map[string]string{
		"obey":              "s1",
		"just do it today":  "s2",
		"just do it todays": "s3",
	}, c.ExactKeys)
}

func TestBuildRejectsDuplicateIDs(t *testing.T) {
	_, err := Build(context.Background(), []Record{
		{ID: "a", Text: "Just do it"},
		{ID: "a", Text: "Think different"},
	}, embedding.NewHashProvider(8), BuildOptions{MinLength: 5})
	assert.True(t, errors.Is(err, apperrors.ErrCorpusLoad))
}

type failingProvider struct{}

func (failingProvider) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("boom")
}
func (failingProvider) Model() string { return "failing" }

func TestBuildEmbeddingFailureIsFatal(t *testing.T) {
	_, err := Build(context.Background(), []Record{{ID: "a", Text: "Just do it"}},
		failingProvider{}, BuildOptions{MinLength: 5})
	assert.True(t, errors.Is(err, apperrors.ErrEmbedding))
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slogans.txt")
	require.NoError(t, os.WriteFile(path, []byte("1. Just do it\n\n2. Думай иначе\n"), 0o644))

	src, err := NewSource(config.CorpusConfig{Source: "file", Paths: []string{path}, DefaultLang: "en"}, nil)
	require.NoError(t, err)
	recs, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "slogans.txt:1", recs[0].ID)
	assert.Equal(t, "en", recs[0].Lang)
	assert.Equal(t, "slogans.txt:3", recs[1].ID)
	assert.Equal(t, "ru", recs[1].Lang)
}

func TestHTMLSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	html := `<html><body><ul class="slogans">
		<li>Just do it</li>
		<li> </li>
		<li>Think different</li>
	</ul><li>outside</li></body></html>`
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))

	src := &HTMLSource{Paths: []string{path}, Selector: "ul.slogans li", DefaultLang: "en"}
	recs, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Just do it", recs[0].Text)
	assert.Equal(t, "page.html#0", recs[0].ID)
	assert.True(t, strings.HasPrefix(recs[1].ID, "page.html#"))
}

func TestNewSourceValidation(t *testing.T) {
	_, err := NewSource(config.CorpusConfig{Source: "postgres"}, nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidConfig))
	_, err = NewSource(config.CorpusConfig{Source: "ftp"}, nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidConfig))
}

func TestMissingFileIsCorpusError(t *testing.T) {
	src := &FileSource{Paths: []string{filepath.Join(t.TempDir(), "missing.txt")}}
	_, err := src.Load(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrCorpusLoad))
}
