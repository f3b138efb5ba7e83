// Package scorer computes the four heuristic quality sub-scores of a
// slogan and their weighted composite. Scoring is pure: it reads the
// candidate's text, tokens and half-phrase embeddings and performs no I/O.
package scorer

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/config"
)

// Dimension names, used in quality rejection reasons.
const (
	DimPunchiness = "punchiness"
	DimWit        = "wit"
	DimClarity    = "clarity"
	DimTwist      = "twist"
)

// Scorer is safe for concurrent use.
type Scorer struct {
	cfg   config.QualityConfig
	vocab map[string]int
}

// New builds a scorer. vocab maps corpus tokens to document frequency and
// drives the rare-word part of clarity; an empty vocab disables that part.
func New(cfg config.QualityConfig, vocab map[string]int) *Scorer {
	if cfg.IdealWords <= 0 {
		cfg.IdealWords = 4
	}
	if cfg.WordSpread <= 0 {
		cfg.WordSpread = 2
	}
	if cfg.LongWordRunes <= 0 {
		cfg.LongWordRunes = 12
	}
	return &Scorer{cfg: cfg, vocab: vocab}
}

// Score fills in the candidate's quality, composite and scored flag.
func (s *Scorer) Score(c *slogan.Candidate) slogan.Quality {
	q := slogan.Quality{
		Punchiness: s.Punchiness(c.Tokens),
		Wit:        s.Wit(c.Text, c.Tokens),
		Clarity:    s.Clarity(c.Text, c.Tokens),
		Twist:      Twist(c.HeadEmbedding, c.TailEmbedding),
	}
	q.Total = s.Composite(q)
	c.Quality = q
	c.Composite = q.Total
	c.Scored = true
	return q
}

// Composite is the weighted sum of the four sub-scores.
func (s *Scorer) Composite(q slogan.Quality) float64 {
	w := s.cfg.Weights
	return w.Punchiness*q.Punchiness + w.Wit*q.Wit + w.Clarity*q.Clarity + w.Twist*q.Twist
}

// BelowMinimum returns the first dimension under its configured floor.
func (s *Scorer) BelowMinimum(q slogan.Quality) (string, bool) {
	m := s.cfg.Minimums
	switch {
	case q.Punchiness < m.Punchiness:
		return DimPunchiness, true
	case q.Wit < m.Wit:
		return DimWit, true
	case q.Clarity < m.Clarity:
		return DimClarity, true
	case q.Twist < m.Twist:
		return DimTwist, true
	}
	return "", false
}

// Punchiness rewards word counts near the ideal and regular syllable
// rhythm.
func (s *Scorer) Punchiness(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	d := float64(len(tokens)) - s.cfg.IdealWords
	length := math.Exp(-(d * d) / (2 * s.cfg.WordSpread * s.cfg.WordSpread))
	return clamp01(0.7*length + 0.3*rhythm(tokens))
}

// rhythm is 1 minus the coefficient of variation of syllables per word.
func rhythm(tokens []string) float64 {
	if len(tokens) < 2 {
		return 0.5
	}
	var sum, sumSq float64
	for _, t := range tokens {
		n := float64(syllables(t))
		sum += n
		sumSq += n * n
	}
	mean := sum / float64(len(tokens))
	variance := sumSq/float64(len(tokens)) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return clamp01(1 - math.Sqrt(variance)/mean)
}

func isVowel(r rune) bool {
	return strings.ContainsRune("aeiouyаеёиоуыэюя", r)
}

// syllables counts vowel groups, with a floor of one.
func syllables(word string) int {
	n := 0
	prev := false
	for _, r := range word {
		v := isVowel(r)
		if v && !prev {
			n++
		}
		prev = v
	}
	if n == 0 {
		return 1
	}
	return n
}

// Wit combines rhyme, alliteration, word repetition and an exclamation or
// question mark.
func (s *Scorer) Wit(original string, tokens []string) float64 {
	marker := 0.0
	if strings.ContainsAny(original, "!?") {
		marker = 1
	}
	return clamp01(0.35*rhymeScore(tokens) + 0.30*alliteration(tokens) + 0.20*repetition(tokens) + 0.15*marker)
}

func rhymes(a, b string) bool {
	if a == b {
		return false
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) < 3 || len(rb) < 3 {
		return false
	}
	n := 2
	if len(ra) >= 4 && len(rb) >= 4 {
		n = 3
	}
	return string(ra[len(ra)-n:]) == string(rb[len(rb)-n:])
}

// rhymeScore is 1 when the last word rhymes with an earlier word and 0.6
// for any other rhyming pair.
func rhymeScore(tokens []string) float64 {
	if len(tokens) < 2 {
		return 0
	}
	last := tokens[len(tokens)-1]
	for _, t := range tokens[:len(tokens)-1] {
		if rhymes(t, last) {
			return 1
		}
	}
	for i := 0; i < len(tokens)-1; i++ {
		for j := i + 1; j < len(tokens)-1; j++ {
			if rhymes(tokens[i], tokens[j]) {
				return 0.6
			}
		}
	}
	return 0
}

// alliteration is twice the share of adjacent content-word pairs that
// start with the same letter, capped at 1.
func alliteration(tokens []string) float64 {
	var words []string
	for _, t := range tokens {
		if utf8.RuneCountInString(t) >= 3 {
			words = append(words, t)
		}
	}
	if len(words) < 2 {
		return 0
	}
	pairs := 0
	for i := 1; i < len(words); i++ {
		a, _ := utf8.DecodeRuneInString(words[i-1])
		b, _ := utf8.DecodeRuneInString(words[i])
		if a == b {
			pairs++
		}
	}
	return clamp01(2 * float64(pairs) / float64(len(words)-1))
}

func repetition(tokens []string) float64 {
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if utf8.RuneCountInString(t) < 3 {
			continue
		}
		if _, ok := seen[t]; ok {
			return 1
		}
		seen[t] = struct{}{}
	}
	return 0
}

var conjunctions = map[string]struct{}{
	"and": {}, "but": {}, "or": {}, "because": {}, "which": {}, "that": {},
	"while": {}, "although": {}, "и": {}, "но": {}, "или": {}, "потому": {},
	"который": {}, "которая": {}, "хотя": {},
}

var clauseMarks = []string{",", ";", ":", "—", "–"}

// Clarity penalises words unseen in the corpus, very long words and clause
// complexity.
func (s *Scorer) Clarity(original string, tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var rare, long, conj int
	for _, t := range tokens {
		if len(s.vocab) > 0 && s.vocab[t] < s.cfg.RareDocFreq {
			rare++
		}
		if utf8.RuneCountInString(t) >= s.cfg.LongWordRunes {
			long++
		}
		if _, ok := conjunctions[t]; ok {
			conj++
		}
	}
	n := float64(len(tokens))
	clauses := conj
	for _, mark := range clauseMarks {
		clauses += strings.Count(original, mark)
	}
	complexity := (clamp01(float64(clauses)/3) + clamp01((n-8)/12)) / 2
	return clamp01(1 - 0.5*float64(rare)/n - 0.25*float64(long)/n - 0.25*complexity)
}

// Twist is the semantic distance between the head and tail phrases, or 0
// when either half is missing.
func Twist(head, tail []float32) float64 {
	if len(head) == 0 || len(tail) == 0 {
		return 0
	}
	return clamp01(1 - embedding.Cosine(head, tail))
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
