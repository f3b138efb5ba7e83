package scorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/textnorm"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/config"
)

func newScorer(vocab map[string]int) *Scorer {
	return New(config.Default().Quality, vocab)
}

func prepared(t *testing.T, text string) *slogan.Candidate {
	t.Helper()
	c := slogan.NewCandidate("x", text, "en", 0)
	c.Normalized = textnorm.Normalize(text, "en")
	c.Tokens = textnorm.Tokens(c.Normalized)
	p := embedding.NewHashProvider(64)
	full, err := p.Embed(context.Background(), c.Normalized)
	require.NoError(t, err)
	var head, tail []float32
	if h, tl, ok := textnorm.SplitHalves(c.Tokens); ok {
		head, _ = p.Embed(context.Background(), h)
		tail, _ = p.Embed(context.Background(), tl)
	}
	c.SetEmbeddings(full, head, tail)
	return c
}

func TestSubScoresInUnitRangeAndCompositeIsWeightedSum(t *testing.T) {
	s := newScorer(map[string]int{"just": 3, "do": 5, "it": 9})
	weights := config.Default().Quality.Weights
	texts := []string{
		"Just do it.",
		"Think different!",
		"Dream Bigger Today",
		"A",
		"Supercalifragilisticexpialidocious antidisestablishmentarianism, notwithstanding, because reasons",
		"Think small, think big, think again?",
		"Думай иначе",
	}
	for _, text := range texts {
		t.Run(text, func(t *testing.T) {
			c := prepared(t, text)
			q := s.Score(c)
			for _, v := range []float64{q.Punchiness, q.Wit, q.Clarity, q.Twist} {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
			want := weights.Punchiness*q.Punchiness + weights.Wit*q.Wit +
				weights.Clarity*q.Clarity + weights.Twist*q.Twist
			assert.InDelta(t, want, q.Total, 1e-9)
			assert.Equal(t, q.Total, c.Composite)
			assert.True(t, c.Scored)
		})
	}
}

func TestPunchinessPrefersShortSlogans(t *testing.T) {
	s := newScorer(nil)
	short := s.Punchiness([]string{"just", "do", "it", "now"})
	long := s.Punchiness(textnorm.Tokens("this slogan rambles on and on for far too many words to stay memorable"))
	assert.Greater(t, short, long)
}

func TestWitSignals(t *testing.T) {
	s := newScorer(nil)
	plain := s.Wit("Open the door", []string{"open", "the", "door"})
	rhyme := s.Wit("Snap crackle pop, never stop", textnorm.Tokens("snap crackle pop never stop"))
	alliterative := s.Wit("Big bold brave", []string{"big", "bold", "brave"})
	repeated := s.Wit("Think small think big", textnorm.Tokens("think small think big"))
	marked := s.Wit("Open the door!", []string{"open", "the", "door"})

	assert.Greater(t, rhyme, plain)
	assert.Greater(t, alliterative, plain)
	assert.Greater(t, repeated, plain)
	assert.Greater(t, marked, plain)
}

func TestClarityPenalisesRareAndComplex(t *testing.T) {
	vocab := map[string]int{"just": 4, "do": 4, "it": 4}
	s := newScorer(vocab)
	common := s.Clarity("Just do it", []string{"just", "do", "it"})
	rare := s.Clarity("Quixotic zephyr bivouac", []string{"quixotic", "zephyr", "bivouac"})
	complex := s.Clarity("Just do it, and it, which, because", textnorm.Tokens("just do it and it which because"))

	assert.Equal(t, 1.0, common)
	assert.Less(t, rare, common)
	assert.Less(t, complex, common)
}

func TestTwist(t *testing.T) {
	assert.Equal(t, 0.0, Twist(nil, []float32{1}))
	assert.InDelta(t, 0.0, Twist([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1.0, Twist([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 1.0, Twist([]float32{1, 0}, []float32{-1, 0}))

	c := prepared(t, "Hi")
	assert.Equal(t, 0.0, newScorer(nil).Score(c).Twist)
}

func TestBelowMinimum(t *testing.T) {
	cfg := config.Default().Quality
	cfg.Minimums = config.QualityMinimums{Punchiness: 0.65, Wit: 0.60, Clarity: 0.70, Twist: 0.50}
	s := New(cfg, nil)

	dim, below := s.BelowMinimum(slogan.Quality{Punchiness: 0.9, Wit: 0.5, Clarity: 0.9, Twist: 0.9})
	assert.True(t, below)
	assert.Equal(t, DimWit, dim)

	_, below = s.BelowMinimum(slogan.Quality{Punchiness: 0.65, Wit: 0.6, Clarity: 0.7, Twist: 0.5})
	assert.False(t, below)
}

func TestSyllables(t *testing.T) {
	assert.Equal(t, 1, syllables("just"))
	assert.Equal(t, 3, syllables("different"))
	assert.Equal(t, 1, syllables("rhythm"))
	assert.Equal(t, 2, syllables("думай"))
}
