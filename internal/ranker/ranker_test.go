package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
)

func scored(id string, composite float64, vec ...float32) *slogan.Candidate {
	c := slogan.NewCandidate(id, id, "en", 0)
	c.Composite = composite
	c.Scored = true
	if len(vec) > 0 {
		c.SetEmbeddings(vec, nil, nil)
	}
	return c
}

func TestTieBreaksOnSmallerID(t *testing.T) {
	b := scored("b", 0.81, 1, 0)
	a := scored("a", 0.81, 0, 1)
	sel := Select([]*slogan.Candidate{b, a}, Options{K: 1, DiversityThreshold: 0.9})
	require.Len(t, sel.Items, 1)
	assert.Equal(t, "a", sel.Items[0].ID)
}

func TestDiversityNeverChangesFirstPick(t *testing.T) {
	cands := []*slogan.Candidate{
		scored("top", 0.95, 1, 0),
		scored("twin", 0.94, 1, 0.01),
		scored("other", 0.70, 0, 1),
	}
	for _, threshold := range []float64{0, 0.5, 0.9, 1} {
		sel := Select(cands, Options{K: 3, DiversityThreshold: threshold})
		require.NotEmpty(t, sel.Items)
		assert.Equal(t, "top", sel.Items[0].ID, "threshold %v", threshold)
	}
}

func TestDiversitySkipsNearDuplicates(t *testing.T) {
	cands := []*slogan.Candidate{
		scored("top", 0.95, 1, 0),
		scored("twin", 0.94, 1, 0.01),
		scored("other", 0.70, 0, 1),
	}
	sel := Select(cands, Options{K: 2, DiversityThreshold: 0.9})
	assert.Equal(t, []string{"top", "other"}, ids(sel.Items))
	require.Len(t, sel.Skipped, 1)
	assert.Equal(t, "twin", sel.Skipped[0].CandidateID)
	assert.Equal(t, "top", sel.Skipped[0].SimilarTo)
	assert.True(t, cands[1].Alive(), "skipped candidates stay unrejected")
}

func TestDisabledDiversityKeepsOrder(t *testing.T) {
	cands := []*slogan.Candidate{
		scored("top", 0.95, 1, 0),
		scored("twin", 0.94, 1, 0),
	}
	sel := Select(cands, Options{K: 2, DiversityThreshold: 1})
	assert.Equal(t, []string{"top", "twin"}, ids(sel.Items))
	assert.Empty(t, sel.Skipped)
}

func TestSelectIgnoresRejectedAndUnscored(t *testing.T) {
	rejected := scored("r", 0.99, 1, 0)
	rejected.Reject(slogan.StageSafety, "safety:x", "")
	unscored := slogan.NewCandidate("u", "u", "en", 0)
	keep := scored("k", 0.5)

	sel := Select([]*slogan.Candidate{rejected, unscored, keep}, Options{K: 5, DiversityThreshold: 0.9})
	assert.Equal(t, []string{"k"}, ids(sel.Items))
}

func TestShortlistShorterThanK(t *testing.T) {
	sel := Select([]*slogan.Candidate{scored("a", 0.4)}, Options{K: 10, DiversityThreshold: 0.9})
	assert.Len(t, sel.Items, 1)
	assert.Empty(t, Select(nil, Options{K: 3}).Items)
}

func ids(cs []*slogan.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}
