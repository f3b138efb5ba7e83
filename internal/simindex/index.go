// Package simindex answers nearest-neighbour queries over corpus
// embeddings. Search is an exact inner-product scan over unit vectors, so
// recall is 1.0 and results are identical across runs.
package simindex

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
	apperrors "github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/logger"
)

// Index is immutable after Build and safe for concurrent Search.
type Index struct {
	ids  []string
	vecs [][]float32
	dim  int
}

// Build normalises and indexes every entry embedding. All embeddings must
// share one non-zero dimension.
func Build(entries []*slogan.CorpusEntry) (*Index, error) {
	ix := &Index{
		ids:  make([]string, 0, len(entries)),
		vecs: make([][]float32, 0, len(entries)),
	}
	for _, e := range entries {
		if len(e.Embedding) == 0 {
			return nil, apperrors.Newf(apperrors.ErrIndexBuild, "semantic", "entry %s has no embedding", e.ID)
		}
		if ix.dim == 0 {
			ix.dim = len(e.Embedding)
		}
		if len(e.Embedding) != ix.dim {
			return nil, apperrors.Newf(apperrors.ErrIndexBuild, "semantic",
				"entry %s has dimension %d, index has %d", e.ID, len(e.Embedding), ix.dim)
		}
		ix.ids = append(ix.ids, e.ID)
		ix.vecs = append(ix.vecs, embedding.Normalize(e.Embedding))
	}
	logger.WithComponent("simindex").Info("similarity index built", "entries", len(ix.ids), "dim", ix.dim)
	return ix, nil
}

func (ix *Index) Len() int { return len(ix.ids) }

// Search returns up to m neighbours by descending cosine similarity, ties
// broken by ascending entry id.
func (ix *Index) Search(query []float32, m int) ([]slogan.Neighbor, error) {
	if m <= 0 || len(ix.ids) == 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, apperrors.Newf(apperrors.ErrEmbedding, "semantic",
			"query has dimension %d, index has %d", len(query), ix.dim)
	}
	q := embedding.Normalize(query)

	h := &neighborHeap{}
	for i, v := range ix.vecs {
		n := slogan.Neighbor{EntryID: ix.ids[i], Similarity: embedding.Dot(q, v)}
		if h.Len() < m {
			heap.Push(h, n)
			continue
		}
		if worse((*h)[0], n) {
			(*h)[0] = n
			heap.Fix(h, 0)
		}
	}
	result := make([]slogan.Neighbor, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(slogan.Neighbor)
	}
	return result, nil
}

// worse reports whether a ranks below b.
func worse(a, b slogan.Neighbor) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity < b.Similarity
	}
	return a.EntryID > b.EntryID
}

// neighborHeap is a min-heap with the worst-ranked neighbour on top.
type neighborHeap []slogan.Neighbor

func (h neighborHeap) Len() int { return len(h) }

func (h neighborHeap) Less(i, j int) bool { return worse(h[i], h[j]) }

func (h neighborHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *neighborHeap) Push(x interface{}) {
	*h = append(*h, x.(slogan.Neighbor))
}

func (h *neighborHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
