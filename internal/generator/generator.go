// Package generator produces an offline candidate pool from creative
// pattern templates. Output depends only on the seed, language and count,
// so a pool can be regenerated exactly for a re-run.
package generator

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
)

// idSpace namespaces generated candidate ids.
var idSpace = uuid.MustParse("5b0c5d8e-4a0f-4c55-9a57-2f3d6a1e7c11")

type Generator struct {
	lang  string
	seed  int64
	rng   *rand.Rand
	vocab wordPools
	pats  []pattern
}

// New returns a generator for lang ("en" or "ru"; anything else uses en).
func New(lang string, seed int64) *Generator {
	if lang != "ru" {
		lang = "en"
	}
	g := &Generator{
		lang: lang,
		seed: seed,
		rng:  rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15)),
	}
	if lang == "ru" {
		g.vocab, g.pats = ruWords, ruPatterns
	} else {
		g.vocab, g.pats = enWords, enPatterns
	}
	return g
}

// Generate returns count candidates in generation order. Each candidate's
// BriefID names the creative pattern it came from. Texts shorter than six
// runes are discarded and regenerated.
func (g *Generator) Generate(count int) []*slogan.Candidate {
	out := make([]*slogan.Candidate, 0, count)
	for attempts := 0; len(out) < count && attempts < count*4; attempts++ {
		p := g.pats[g.rng.IntN(len(g.pats))]
		text := g.fill(p.templates[g.rng.IntN(len(p.templates))])
		text = g.vary(text, p.name)
		if utf8.RuneCountInString(text) <= 5 {
			continue
		}
		seq := len(out)
		id := uuid.NewSHA1(idSpace, fmt.Appendf(nil, "%s:%d:%d", g.lang, g.seed, seq)).String()
		c := slogan.NewCandidate(id, text, g.lang, seq)
		c.BriefID = p.name
		out = append(out, c)
	}
	return out
}

func (g *Generator) fill(template string) string {
	var b strings.Builder
	for {
		start := strings.IndexByte(template, '{')
		if start < 0 {
			b.WriteString(template)
			return b.String()
		}
		end := strings.IndexByte(template[start:], '}')
		if end < 0 {
			b.WriteString(template)
			return b.String()
		}
		b.WriteString(template[:start])
		b.WriteString(g.pick(template[start+1 : start+end]))
		template = template[start+end+1:]
	}
}

func (g *Generator) pick(slot string) string {
	var pool []string
	switch slot {
	case "adj":
		pool = g.vocab.adjectives
	case "verb":
		pool = g.vocab.verbs
	case "noun":
		pool = g.vocab.nouns
	case "adv":
		pool = g.vocab.adverbs
	case "emotion":
		pool = g.vocab.emotions
	}
	if len(pool) == 0 {
		return slot
	}
	return pool[g.rng.IntN(len(pool))]
}

// vary capitalises most slogans and adds pattern-typical punctuation.
func (g *Generator) vary(text, pattern string) string {
	if g.rng.Float64() < 0.9 {
		r, size := utf8.DecodeRuneInString(text)
		text = string(unicode.ToUpper(r)) + text[size:]
	}
	switch {
	case pattern == "question" && !strings.HasSuffix(text, "?"):
		text += "?"
	case pattern == "imperative" && g.rng.Float64() < 0.3:
		text += "!"
	case pattern == "minimalism" && g.rng.Float64() < 0.2:
		text += "."
	}
	return strings.TrimSpace(text)
}
