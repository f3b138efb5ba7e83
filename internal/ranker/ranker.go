// Package ranker orders scored candidates and picks a diverse shortlist.
package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
)

type Options struct {
	K int
	// DiversityThreshold is the cosine at or above which a candidate is too
	// close to one already selected. Values >= 1 disable the check.
	DiversityThreshold float64
}

// Skip records a candidate passed over for diversity. Skipped candidates
// are not rejected.
type Skip struct {
	CandidateID string  `json:"candidate_id"`
	SimilarTo   string  `json:"similar_to"`
	Similarity  float64 `json:"similarity"`
}

type Selection struct {
	Items   []*slogan.Candidate
	Skipped []Skip
}

// Order returns the live, scored candidates sorted by composite score
// descending, then id ascending.
func Order(cands []*slogan.Candidate) []*slogan.Candidate {
	out := make([]*slogan.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Alive() && c.Scored {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Composite != out[j].Composite {
			return out[i].Composite > out[j].Composite
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Select walks the ordered candidates and keeps up to K of them, skipping
// any whose embedding is too similar to an already selected item. A
// shortlist shorter than K is not an error.
func Select(cands []*slogan.Candidate, opts Options) Selection {
	var sel Selection
	if opts.K <= 0 {
		return sel
	}
	diverse := opts.DiversityThreshold < 1
	for _, c := range Order(cands) {
		if len(sel.Items) >= opts.K {
			break
		}
		if diverse {
			if near, sim, ok := nearest(c, sel.Items, opts.DiversityThreshold); ok {
				sel.Skipped = append(sel.Skipped, Skip{CandidateID: c.ID, SimilarTo: near, Similarity: sim})
				continue
			}
		}
		sel.Items = append(sel.Items, c)
	}
	return sel
}

func nearest(c *slogan.Candidate, selected []*slogan.Candidate, threshold float64) (string, float64, bool) {
	if len(c.Embedding) == 0 {
		return "", 0, false
	}
	for _, s := range selected {
		if len(s.Embedding) == 0 {
			continue
		}
		if sim := embedding.Cosine(c.Embedding, s.Embedding); sim >= threshold {
			return s.ID, sim, true
		}
	}
	return "", 0, false
}
