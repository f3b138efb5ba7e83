package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/safety"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/metrics"
)

var corpusRecords = []corpus.Record{
	{ID: "c1", Text: "Just Do It.", Lang: "en"},
	{ID: "c2", Text: "Think Different.", Lang: "en"},
	{ID: "c3", Text: "Because you're worth it", Lang: "en"},
	{ID: "c4", Text: "Have a break, have a KitKat", Lang: "en"},
}

type failingProvider struct {
	embedding.Provider
	failOn string
}

func (f failingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == f.failOn {
		return nil, errors.New("provider exploded")
	}
	return f.Provider.Embed(ctx, text)
}

func newPipeline(t *testing.T, cfg *config.Config, provider embedding.Provider, m *metrics.Metrics) *Pipeline {
	t.Helper()
	hash := embedding.NewHashProvider(128)
	corp, err := corpus.Build(context.Background(), corpusRecords, hash, corpus.BuildOptions{
		MinLength: 5,
		NGramSize: cfg.Novelty.NGramSize,
	})
	require.NoError(t, err)

	filter, err := safety.New(cfg.Safety, nil, m)
	require.NoError(t, err)
	if provider == nil {
		provider = hash
	}
	opts := OptionsFromConfig(cfg)
	opts.RunID = "test-run"
	opts.Workers = 4
	p, err := New(Deps{
		Corpus:   corp,
		Embedder: provider,
		Safety:   filter,
		Scorer:   scorer.New(cfg.Quality, corp.Vocabulary()),
		Metrics:  m,
	}, opts)
	require.NoError(t, err)
	return p
}

func pool() []*slogan.Candidate {
	texts := []struct{ id, text string }{
		{"p1", "Just do it!"},
		{"p2", "Dream Bigger Today"},
		{"p3", "Dream bigger today!"},
		{"p4", "100% natural joy"},
		{"p5", ""},
		{"p6", "Brew your bright morning"},
		{"p7", "Think Different!"},
	}
	out := make([]*slogan.Candidate, len(texts))
	for i, tt := range texts {
		out[i] = slogan.NewCandidate(tt.id, tt.text, "en", i)
	}
	return out
}

func byID(cands []*slogan.Candidate) map[string]*slogan.Candidate {
	out := make(map[string]*slogan.Candidate, len(cands))
	for _, c := range cands {
		out[c.ID] = c
	}
	return out
}

func TestRunEndToEnd(t *testing.T) {
	m := metrics.New()
	p := newPipeline(t, config.Default(), nil, m)

	res, err := p.Run(context.Background(), pool())
	require.NoError(t, err)
	got := byID(res.Candidates)

	assert.Equal(t, slogan.ReasonExactDuplicate, got["p1"].Rejection().Reason)
	assert.Equal(t, "corpus:c1", got["p1"].Rejection().Detail)
	assert.Equal(t, slogan.ReasonExactDuplicate, got["p7"].Rejection().Reason)
	assert.Equal(t, "candidate:p2", got["p3"].Rejection().Detail)
	assert.Equal(t, "safety:percent-claim", got["p4"].Rejection().Reason)

	malformed := got["p5"].Rejection()
	require.NotNil(t, malformed)
	assert.Equal(t, slogan.KindFailed, malformed.Kind)
	assert.Equal(t, slogan.ReasonMalformedInput, malformed.Reason)

	assert.ElementsMatch(t, []string{"p2", "p6"}, res.Shortlist.IDs())
	for _, c := range res.Shortlist.Items {
		assert.True(t, c.Alive())
		assert.True(t, c.Scored)
		assert.NotEmpty(t, c.Novelty.NearestEntryID)
	}

	assert.Equal(t, 3, res.Histogram[slogan.ReasonExactDuplicate])
	assert.Equal(t, 1, res.Histogram["safety:percent-claim"])
	assert.Equal(t, 1, res.Histogram[slogan.ReasonMalformedInput])
	assert.Equal(t, 1, res.Failures)
	assert.Equal(t, "test-run", res.Shortlist.RunID)
	assert.Len(t, res.Stages, 8)

	assert.Equal(t, 7.0, metrics.Value(m.CandidatesTotal))
	assert.Equal(t, 2.0, metrics.Value(m.ShortlistSize))
	assert.Equal(t, 1.0, metrics.Value(m.FailuresTotal.WithLabelValues(slogan.StageNormalize)))
}

func TestExactDuplicateOfDroppedCorpusRecord(t *testing.T) {
	cfg := config.Default()
	hash := embedding.NewHashProvider(128)
	corp, err := corpus.Build(context.Background(), []corpus.Record{
		{ID: "s1", Text: "Obey", Lang: "en"},
		{ID: "s2", Text: "Just do it today", Lang: "en"},
		{ID: "s3", Text: "Just do it todays", Lang: "en"},
	}, hash, corpus.BuildOptions{MinLength: 5, DedupThreshold: 0.9, NGramSize: cfg.Novelty.NGramSize})
	require.NoError(t, err)
	require.Equal(t, 1, corp.Len())

	filter, err := safety.New(cfg.Safety, nil, nil)
	require.NoError(t, err)
	p, err := New(Deps{
		Corpus:   corp,
		Embedder: hash,
		Safety:   filter,
		Scorer:   scorer.New(cfg.Quality, corp.Vocabulary()),
	}, OptionsFromConfig(cfg))
	require.NoError(t, err)

	short := slogan.NewCandidate("a", "Obey", "en", 0)
	near := slogan.NewCandidate("b", "Just do it todays", "en", 1)
	_, err = p.Run(context.Background(), []*slogan.Candidate{short, near})
	require.NoError(t, err)

	for c, owner := range map[*slogan.Candidate]string{short: "corpus:s1", near: "corpus:s3"} {
		rej := c.Rejection()
		require.NotNil(t, rej, c.ID)
		assert.Equal(t, slogan.StageExact, rej.Stage, c.ID)
		assert.Equal(t, slogan.ReasonExactDuplicate, rej.Reason, c.ID)
		assert.Equal(t, owner, rej.Detail, c.ID)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := config.Default()
	first, err := newPipeline(t, cfg, nil, nil).Run(context.Background(), pool())
	require.NoError(t, err)
	second, err := newPipeline(t, cfg, nil, nil).Run(context.Background(), pool())
	require.NoError(t, err)

	assert.Equal(t, first.Shortlist.IDs(), second.Shortlist.IDs())
	assert.Equal(t, first.Histogram, second.Histogram)
	a, b := byID(first.Candidates), byID(second.Candidates)
	for id, c := range a {
		assert.Equal(t, c.Rejection(), b[id].Rejection(), id)
		assert.Equal(t, c.Composite, b[id].Composite, id)
		assert.Equal(t, c.Novelty, b[id].Novelty, id)
	}
}

func TestRunOrdersBySeq(t *testing.T) {
	p := newPipeline(t, config.Default(), nil, nil)
	later := slogan.NewCandidate("a", "Dream bigger today", "en", 2)
	earlier := slogan.NewCandidate("b", "Dream bigger today", "en", 1)

	_, err := p.Run(context.Background(), []*slogan.Candidate{later, earlier})
	require.NoError(t, err)
	assert.True(t, earlier.Alive())
	require.NotNil(t, later.Rejection())
	assert.Equal(t, "candidate:b", later.Rejection().Detail)
}

func TestDuplicateCandidateIDIsMalformed(t *testing.T) {
	p := newPipeline(t, config.Default(), nil, nil)
	first := slogan.NewCandidate("x", "Dream bigger today", "en", 0)
	second := slogan.NewCandidate("x", "Brew your bright morning", "en", 1)

	_, err := p.Run(context.Background(), []*slogan.Candidate{first, second})
	require.NoError(t, err)
	assert.True(t, first.Alive())
	assert.Equal(t, slogan.ReasonMalformedInput, second.Rejection().Reason)
}

func TestEmbeddingFailureFailsOnlyThatCandidate(t *testing.T) {
	provider := failingProvider{Provider: embedding.NewHashProvider(128), failOn: "brew your bright morning"}
	p := newPipeline(t, config.Default(), provider, nil)

	res, err := p.Run(context.Background(), pool())
	require.NoError(t, err)
	got := byID(res.Candidates)
	rej := got["p6"].Rejection()
	require.NotNil(t, rej)
	assert.Equal(t, slogan.KindFailed, rej.Kind)
	assert.Equal(t, slogan.ReasonEmbeddingError, rej.Reason)
	assert.Equal(t, []string{"p2"}, res.Shortlist.IDs())
}

func TestQualityMinimumRejects(t *testing.T) {
	cfg := config.Default()
	cfg.Quality.Minimums.Punchiness = 1
	p := newPipeline(t, cfg, nil, nil)

	res, err := p.Run(context.Background(), pool())
	require.NoError(t, err)
	assert.Empty(t, res.Shortlist.Items)
	assert.Equal(t, 2, res.Histogram["quality:punchiness"])
}

func TestSemanticThresholdRejectsNearCopies(t *testing.T) {
	cfg := config.Default()
	cfg.Novelty.FuzzyThreshold = 1
	cfg.Novelty.SemanticThreshold = 0.5
	p := newPipeline(t, cfg, nil, nil)

	c := slogan.NewCandidate("near", "Because you are worth it", "en", 0)
	_, err := p.Run(context.Background(), []*slogan.Candidate{c})
	require.NoError(t, err)
	require.NotNil(t, c.Rejection())
	assert.Equal(t, slogan.ReasonSemanticDuplicate, c.Rejection().Reason)
	assert.Equal(t, "c3", c.Novelty.NearestEntryID)
}

func TestCancelledRun(t *testing.T) {
	p := newPipeline(t, config.Default(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx, pool())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Deps{}, Options{})
	assert.Error(t, err)
}
