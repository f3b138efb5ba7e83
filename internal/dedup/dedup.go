// Package dedup rejects candidates whose normalized text equals, or nearly
// equals, a corpus entry or an earlier accepted candidate.
package dedup

import (
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/logger"
)

// Deduplicator holds the corpus-side exact and fuzzy indexes. Pool-side
// state is created per pass so one Deduplicator can serve many runs.
type Deduplicator struct {
	threshold   float64
	corpusExact map[string]string
	corpusFuzzy *FuzzyIndex
	logger      *slog.Logger
}

// New indexes the corpus. threshold is the fuzzy ratio at or above which a
// candidate is a near-duplicate.
func New(entries []*slogan.CorpusEntry, threshold float64) *Deduplicator {
	d := &Deduplicator{
		threshold:   threshold,
		corpusExact: make(map[string]string, len(entries)),
		corpusFuzzy: NewFuzzyIndex(threshold),
		logger:      logger.WithComponent("dedup"),
	}
	for _, e := range entries {
		if _, ok := d.corpusExact[e.Normalized]; !ok {
			d.corpusExact[e.Normalized] = e.ID
		}
		d.corpusFuzzy.Add(e.ID, e.Normalized)
	}
	d.logger.Debug("dedup index built", "entries", len(entries), "threshold", threshold)
	return d
}

// AddExact registers normalized as a corpus text owned by id without adding
// it to the fuzzy index. An existing mapping is kept.
func (d *Deduplicator) AddExact(normalized, id string) {
	if normalized == "" {
		return
	}
	if _, ok := d.corpusExact[normalized]; !ok {
		d.corpusExact[normalized] = id
	}
}

// ExactPass rejects candidates whose normalized text matches the corpus or
// an earlier live candidate. cands must be in Seq order; the first
// occurrence survives.
func (d *Deduplicator) ExactPass(cands []*slogan.Candidate) int {
	seen := make(map[string]string, len(cands))
	rejected := 0
	for _, c := range cands {
		if !c.Alive() {
			continue
		}
		if id, ok := d.corpusExact[c.Normalized]; ok {
			if c.Reject(slogan.StageExact, slogan.ReasonExactDuplicate, "corpus:"+id) {
				rejected++
			}
			continue
		}
		if id, ok := seen[c.Normalized]; ok {
			if c.Reject(slogan.StageExact, slogan.ReasonExactDuplicate, "candidate:"+id) {
				rejected++
			}
			continue
		}
		seen[c.Normalized] = c.ID
	}
	return rejected
}

// CheckCorpus compares one candidate against the corpus fuzzy index and
// rejects it on a near-duplicate. Safe to call concurrently.
func (d *Deduplicator) CheckCorpus(c *slogan.Candidate) bool {
	if !c.Alive() {
		return false
	}
	m, ok := d.corpusFuzzy.Best(c.Normalized)
	if !ok {
		return false
	}
	c.Novelty.FuzzyRatio = m.Ratio
	c.Novelty.FuzzyMatchID = m.ID
	return c.Reject(slogan.StageFuzzy, slogan.ReasonFuzzyDuplicate,
		fmt.Sprintf("corpus:%s ratio=%.3f", m.ID, m.Ratio))
}

// PoolPass compares live candidates against earlier accepted candidates in
// Seq order and rejects near-duplicates. It must run after CheckCorpus so
// that only corpus-novel candidates are accepted into the pool index.
func (d *Deduplicator) PoolPass(cands []*slogan.Candidate) int {
	pool := NewFuzzyIndex(d.threshold)
	rejected := 0
	for _, c := range cands {
		if !c.Alive() {
			continue
		}
		if m, ok := pool.Best(c.Normalized); ok {
			c.Novelty.FuzzyRatio = m.Ratio
			c.Novelty.FuzzyMatchID = m.ID
			if c.Reject(slogan.StageFuzzy, slogan.ReasonFuzzyDuplicate,
				fmt.Sprintf("candidate:%s ratio=%.3f", m.ID, m.Ratio)) {
				rejected++
			}
			continue
		}
		pool.Add(c.ID, c.Normalized)
	}
	return rejected
}
