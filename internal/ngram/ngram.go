// Package ngram detects verbatim phrase reuse by comparing word n-grams of
// candidates against corpus entries and earlier accepted candidates.
package ngram

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
)

// Extract returns the distinct contiguous word n-grams of tokens in first
// occurrence order. Fewer than n tokens yield no n-grams.
func Extract(tokens []string, n int) []string {
	if n <= 0 || len(tokens) < n {
		return nil
	}
	seen := make(map[string]struct{}, len(tokens)-n+1)
	grams := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		g := strings.Join(tokens[i:i+n], " ")
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		grams = append(grams, g)
	}
	return grams
}

// Index maps n-grams to the documents that contain them.
type Index struct {
	postings map[string][]int
	ids      []string
}

func NewIndex() *Index {
	return &Index{postings: make(map[string][]int)}
}

// Add indexes the distinct n-grams of one document.
func (ix *Index) Add(id string, grams []string) {
	doc := len(ix.ids)
	ix.ids = append(ix.ids, id)
	for _, g := range grams {
		ix.postings[g] = append(ix.postings[g], doc)
	}
}

func (ix *Index) Len() int {
	return len(ix.ids)
}

// MaxOverlap returns the largest fraction of grams shared with any single
// indexed document, and that document's id. Ties go to the smaller id.
func (ix *Index) MaxOverlap(grams []string) (float64, string) {
	if len(grams) == 0 {
		return 0, ""
	}
	counts := make(map[int]int)
	for _, g := range grams {
		for _, doc := range ix.postings[g] {
			counts[doc]++
		}
	}
	bestCount, bestID := 0, ""
	for doc, n := range counts {
		id := ix.ids[doc]
		if n > bestCount || (n == bestCount && id < bestID) {
			bestCount, bestID = n, id
		}
	}
	return float64(bestCount) / float64(len(grams)), bestID
}

// Detector rejects candidates whose overlap ratio exceeds the threshold.
type Detector struct {
	n         int
	threshold float64
	corpus    *Index
}

// NewDetector indexes the n-grams of every corpus entry's tokens. Grams are
// extracted with n so corpus and candidate sides always agree on size.
func NewDetector(entries []*slogan.CorpusEntry, n int, threshold float64) *Detector {
	ix := NewIndex()
	for _, e := range entries {
		ix.Add(e.ID, Extract(e.Tokens, n))
	}
	return &Detector{n: n, threshold: threshold, corpus: ix}
}

func (d *Detector) N() int {
	return d.n
}

// CheckCorpus records the candidate's corpus overlap and rejects it when
// the ratio exceeds the threshold. Safe to call concurrently.
func (d *Detector) CheckCorpus(c *slogan.Candidate) bool {
	if !c.Alive() {
		return false
	}
	ratio, id := d.corpus.MaxOverlap(c.NGrams)
	c.Novelty.NGramOverlap = ratio
	c.Novelty.NGramMatchID = id
	if ratio <= d.threshold {
		return false
	}
	return c.Reject(slogan.StageNGram, slogan.ReasonNGramOverlap,
		fmt.Sprintf("corpus:%s overlap=%.3f", id, ratio))
}

// PoolPass compares live candidates in Seq order against earlier accepted
// ones.
func (d *Detector) PoolPass(cands []*slogan.Candidate) int {
	pool := NewIndex()
	rejected := 0
	for _, c := range cands {
		if !c.Alive() {
			continue
		}
		ratio, id := pool.MaxOverlap(c.NGrams)
		if ratio > d.threshold {
			if ratio > c.Novelty.NGramOverlap {
				c.Novelty.NGramOverlap = ratio
				c.Novelty.NGramMatchID = id
			}
			if c.Reject(slogan.StageNGram, slogan.ReasonNGramOverlap,
				fmt.Sprintf("candidate:%s overlap=%.3f", id, ratio)) {
				rejected++
			}
			continue
		}
		pool.Add(c.ID, c.NGrams)
	}
	return rejected
}
