package simindex

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
)

// Checker applies the semantic novelty threshold to index results.
type Checker struct {
	index     *Index
	threshold float64
	neighbors int
}

func NewChecker(index *Index, threshold float64, neighbors int) *Checker {
	if neighbors <= 0 {
		neighbors = 1
	}
	return &Checker{index: index, threshold: threshold, neighbors: neighbors}
}

// Check searches for the candidate's nearest corpus entries, records the
// top hit, and rejects the candidate when its similarity exceeds the
// threshold. The candidate must already carry an embedding.
func (ch *Checker) Check(c *slogan.Candidate) (slogan.SimilarityResult, error) {
	result := slogan.SimilarityResult{CandidateID: c.ID, Passed: true}
	neighbors, err := ch.index.Search(c.Embedding, ch.neighbors)
	if err != nil {
		return result, err
	}
	result.Neighbors = neighbors
	if len(neighbors) == 0 {
		return result, nil
	}
	top := neighbors[0]
	c.Novelty.NearestEntryID = top.EntryID
	c.Novelty.Similarity = top.Similarity
	if top.Similarity > ch.threshold {
		result.Passed = false
		c.Reject(slogan.StageSemantic, slogan.ReasonSemanticDuplicate,
			fmt.Sprintf("corpus:%s similarity=%.3f", top.EntryID, top.Similarity))
	}
	return result, nil
}
