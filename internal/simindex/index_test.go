package simindex

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
	apperrors "github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/errors"
)

func entries(vecs map[string][]float32) []*slogan.CorpusEntry {
	var out []*slogan.CorpusEntry
	for id, v := range vecs {
		out = append(out, &slogan.CorpusEntry{ID: id, Embedding: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func TestSearchOrdersBySimilarityThenID(t *testing.T) {
	ix, err := Build(entries(map[string][]float32{
		"b": {1, 0},
		"a": {1, 0},
		"c": {0, 1},
		"d": {1, 1},
	}))
	require.NoError(t, err)

	got, err := ix.Search([]float32{2, 0}, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].EntryID)
	assert.Equal(t, "b", got[1].EntryID)
	assert.Equal(t, "d", got[2].EntryID)
	assert.InDelta(t, 1.0, got[0].Similarity, 1e-6)
	assert.InDelta(t, 0.7071, got[2].Similarity, 1e-3)
}

func TestSearchMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	vecs := map[string][]float32{}
	for i := 0; i < 300; i++ {
		v := make([]float32, 16)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		vecs[fmt.Sprintf("e%03d", i)] = v
	}
	es := entries(vecs)
	ix, err := Build(es)
	require.NoError(t, err)

	q := make([]float32, 16)
	for j := range q {
		q[j] = rng.Float32()*2 - 1
	}
	type scored struct {
		id  string
		sim float64
	}
	var all []scored
	for _, e := range es {
		all = append(all, scored{e.ID, embedding.Cosine(q, e.Embedding)})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].sim != all[j].sim {
			return all[i].sim > all[j].sim
		}
		return all[i].id < all[j].id
	})

	got, err := ix.Search(q, 10)
	require.NoError(t, err)
	for i := range got {
		assert.Equal(t, all[i].id, got[i].EntryID)
		assert.InDelta(t, all[i].sim, got[i].Similarity, 1e-5)
	}
}

func TestBuildRejectsMismatchedDimensions(t *testing.T) {
	_, err := Build([]*slogan.CorpusEntry{
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "b", Embedding: []float32{1, 0, 0}},
	})
	assert.True(t, errors.Is(err, apperrors.ErrIndexBuild))

	_, err = Build([]*slogan.CorpusEntry{{ID: "a"}})
	assert.True(t, errors.Is(err, apperrors.ErrIndexBuild))
}

func TestSearchDimensionMismatch(t *testing.T) {
	ix, err := Build(entries(map[string][]float32{"a": {1, 0}}))
	require.NoError(t, err)
	_, err = ix.Search([]float32{1, 0, 0}, 1)
	assert.True(t, errors.Is(err, apperrors.ErrEmbedding))
}

func TestCheckerThresholdIsStrict(t *testing.T) {
	ix, err := Build(entries(map[string][]float32{"a": {1, 0}}))
	require.NoError(t, err)
	// identical direction gives exactly 1.0, which is not above 1.0
	at := slogan.NewCandidate("at", "x", "en", 0)
	at.SetEmbeddings([]float32{3, 0}, nil, nil)
	res, err := NewChecker(ix, 1.0, 5).Check(at)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.True(t, at.Alive())
	assert.Equal(t, "a", at.Novelty.NearestEntryID)

	above := slogan.NewCandidate("above", "y", "en", 1)
	above.SetEmbeddings([]float32{0.9, 0.1}, nil, nil)
	res, err = NewChecker(ix, 0.8, 5).Check(above)
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, slogan.ReasonSemanticDuplicate, above.Rejection().Reason)
}

func TestEmptyIndexPassesEverything(t *testing.T) {
	ix, err := Build(nil)
	require.NoError(t, err)
	c := slogan.NewCandidate("x", "x", "en", 0)
	c.SetEmbeddings([]float32{1}, nil, nil)
	res, err := NewChecker(ix, 0.8, 3).Check(c)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Empty(t, res.Neighbors)
}
