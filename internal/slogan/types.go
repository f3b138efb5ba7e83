// Package slogan defines the records that flow through the curation
// pipeline: immutable corpus entries, mutable candidates with their
// per-stage verdicts, and the final shortlist.
package slogan

import (
	"sync"
	"time"
)

// Rejection reasons. Safety rules add "safety:<rule-id>" and quality
// minimums add "quality:<dimension>".
const (
	ReasonExactDuplicate        = "exact_duplicate"
	ReasonFuzzyDuplicate        = "fuzzy_duplicate"
	ReasonNGramOverlap          = "ngram_overlap"
	ReasonSemanticDuplicate     = "semantic_duplicate"
	ReasonClassifier            = "safety:classifier"
	ReasonClassifierUnavailable = "safety:classifier_unavailable"
	ReasonMalformedInput        = "malformed_input"
	ReasonEmbeddingError        = "embedding_error"
)

// Pipeline stage names, used in rejections, logs and metrics.
const (
	StageNormalize = "normalize"
	StageExact     = "dedup_exact"
	StageFuzzy     = "dedup_fuzzy"
	StageNGram     = "ngram"
	StageSemantic  = "semantic"
	StageSafety    = "safety"
	StageScore     = "score"
	StageRank      = "rank"
)

// SafetyReason builds the reason string for a rule match.
func SafetyReason(ruleID string) string {
	return "safety:" + ruleID
}

// QualityReason builds the reason string for a failed quality floor.
func QualityReason(dimension string) string {
	return "quality:" + dimension
}

// Kind separates expected rejections from unexpected failures.
type Kind string

const (
	KindRejected Kind = "rejected"
	KindFailed   Kind = "failed"
)

// Rejection is the terminal verdict attached to a dropped candidate.
type Rejection struct {
	Kind   Kind   `json:"kind"`
	Reason string `json:"reason"`
	Stage  string `json:"stage"`
	Detail string `json:"detail,omitempty"`
}

// CorpusEntry is a known slogan. Entries are built once per run and are
// read-only afterwards.
type CorpusEntry struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Normalized string    `json:"normalized"`
	Lang       string    `json:"lang"`
	Tokens     []string  `json:"-"`
	Embedding  []float32 `json:"-"`
	NGrams     []string  `json:"-"`
}

// Neighbor is one corpus hit returned by the similarity index.
type Neighbor struct {
	EntryID    string  `json:"entry_id"`
	Similarity float64 `json:"similarity"`
}

// SimilarityResult is the index answer for one candidate.
type SimilarityResult struct {
	CandidateID string     `json:"candidate_id"`
	Neighbors   []Neighbor `json:"neighbors"`
	Passed      bool       `json:"passed"`
}

// Novelty records the strongest match seen by each novelty check.
type Novelty struct {
	FuzzyRatio     float64 `json:"fuzzy_ratio"`
	FuzzyMatchID   string  `json:"fuzzy_match_id,omitempty"`
	NGramOverlap   float64 `json:"ngram_overlap"`
	NGramMatchID   string  `json:"ngram_match_id,omitempty"`
	NearestEntryID string  `json:"nearest_entry_id,omitempty"`
	Similarity     float64 `json:"embed_sim_to_nn"`
}

// SafetyVerdict records the safety stage outcome.
type SafetyVerdict struct {
	Checked    bool   `json:"checked"`
	Classified bool   `json:"classified"`
	Caveat     string `json:"caveat,omitempty"`
}

// Quality holds the four heuristic sub-scores and their weighted total.
type Quality struct {
	Punchiness float64 `json:"punchiness"`
	Wit        float64 `json:"wit"`
	Clarity    float64 `json:"clarity"`
	Twist      float64 `json:"twist"`
	Total      float64 `json:"total"`
}

// Candidate is a generated slogan under evaluation. Each pipeline stage
// writes only to its own candidate, so candidates need no locking except
// around the rejection, which is set at most once.
type Candidate struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Normalized string `json:"normalized"`
	BriefID    string `json:"brief_id,omitempty"`
	Lang       string `json:"lang"`
	Seq        int    `json:"seq"`

	Tokens          []string  `json:"-"`
	Embedding       []float32 `json:"-"`
	HeadEmbedding   []float32 `json:"-"`
	TailEmbedding   []float32 `json:"-"`
	NGrams          []string  `json:"-"`
	embeddingLoaded bool

	Novelty   Novelty       `json:"novelty"`
	Safety    SafetyVerdict `json:"safety"`
	Quality   Quality       `json:"style"`
	Composite float64       `json:"total_score"`
	Scored    bool          `json:"scored"`

	mu        sync.Mutex
	rejection *Rejection
}

// NewCandidate creates a candidate in generation order.
func NewCandidate(id, text, lang string, seq int) *Candidate {
	return &Candidate{
		ID:   id,
		Text: text,
		Lang: lang,
		Seq:  seq,
	}
}

// Reject records a rejection if none is set yet. It returns false when an
// earlier stage already rejected the candidate; that verdict stands.
func (c *Candidate) Reject(stage, reason, detail string) bool {
	return c.setRejection(Rejection{Kind: KindRejected, Reason: reason, Stage: stage, Detail: detail})
}

// Fail records a per-candidate failure with a diagnostic.
func (c *Candidate) Fail(stage, reason, detail string) bool {
	return c.setRejection(Rejection{Kind: KindFailed, Reason: reason, Stage: stage, Detail: detail})
}

func (c *Candidate) setRejection(r Rejection) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rejection != nil {
		return false
	}
	c.rejection = &r
	return true
}

// Rejection returns a copy of the rejection, or nil for a live candidate.
func (c *Candidate) Rejection() *Rejection {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rejection == nil {
		return nil
	}
	r := *c.rejection
	return &r
}

// Alive reports whether no stage has rejected or failed the candidate.
func (c *Candidate) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rejection == nil
}

// HasEmbedding reports whether the embedding stage populated the vectors.
func (c *Candidate) HasEmbedding() bool {
	return c.embeddingLoaded
}

// SetEmbeddings stores the full-text embedding and the two half-phrase
// embeddings used by the twist score.
func (c *Candidate) SetEmbeddings(full, head, tail []float32) {
	c.Embedding = full
	c.HeadEmbedding = head
	c.TailEmbedding = tail
	c.embeddingLoaded = true
}

// Shortlist is the ranked, diversity-constrained output of a run.
type Shortlist struct {
	RunID      string         `json:"run_id"`
	Seed       int64          `json:"seed"`
	K          int            `json:"k"`
	CreatedAt  time.Time      `json:"created_at"`
	Items      []*Candidate   `json:"items"`
	Rejections map[string]int `json:"rejections"`
}

// IDs lists the shortlisted candidate ids in rank order.
func (s *Shortlist) IDs() []string {
	ids := make([]string, len(s.Items))
	for i, c := range s.Items {
		ids[i] = c.ID
	}
	return ids
}
