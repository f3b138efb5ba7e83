// Package corpus loads the reference slogan corpus, cleans and
// deduplicates it, and attaches the normalized text, tokens, n-grams and
// embeddings every novelty check reads. A built Corpus is read-only.
package corpus

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/dedup"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/ngram"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/textnorm"
	apperrors "github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/logger"
)

// BuildOptions controls preprocessing.
type BuildOptions struct {
	MinLength int
	// DedupThreshold drops entries whose fuzzy ratio to an earlier entry
	// reaches it. Zero disables corpus fuzzy dedup.
	DedupThreshold float64
	NGramSize      int
	Workers        int
	Normalizer     *textnorm.Normalizer
}

// Corpus is the immutable reference set for one run.
type Corpus struct {
	Entries []*slogan.CorpusEntry
	Stats   Stats
	// ExactKeys maps the normalized text of every slogan-like record,
	// including those dropped as too short or as duplicates, to the first
	// record id that produced it.
	ExactKeys map[string]string
	byID    map[string]*slogan.CorpusEntry
	docFreq map[string]int
}

// Build cleans records, drops invalid and duplicate lines, and embeds the
// survivors with provider. Duplicate record ids and embedding failures are
// fatal.
func Build(ctx context.Context, records []Record, provider embedding.Provider, opts BuildOptions) (*Corpus, error) {
	log := logger.WithComponent("corpus")
	start := time.Now()
	if opts.Normalizer == nil {
		opts.Normalizer = textnorm.New(textnorm.Options{})
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}

	c := &Corpus{
		ExactKeys: make(map[string]string, len(records)),
		byID:      make(map[string]*slogan.CorpusEntry, len(records)),
		docFreq:   make(map[string]int),
	}
	seenIDs := make(map[string]struct{}, len(records))
	seenText := make(map[string]string, len(records))
	var fuzzy *dedup.FuzzyIndex
	if opts.DedupThreshold > 0 {
		fuzzy = dedup.NewFuzzyIndex(opts.DedupThreshold)
	}

	c.Stats.Raw = len(records)
	for _, r := range records {
		if _, dup := seenIDs[r.ID]; dup {
			return nil, apperrors.Newf(apperrors.ErrCorpusLoad, "corpus", "duplicate corpus entry id %q", r.ID)
		}
		seenIDs[r.ID] = struct{}{}

		text := ExtractSlogan(r.Text)
		if !IsValid(text, opts.MinLength) {
			if IsValid(text, 0) {
				c.addExactKey(opts.Normalizer.Normalize(text, r.Lang), r.ID)
			}
			c.Stats.Invalid++
			continue
		}
		normalized := opts.Normalizer.Normalize(text, r.Lang)
		if normalized == "" {
			c.Stats.Invalid++
			continue
		}
		c.addExactKey(normalized, r.ID)
		if _, dup := seenText[normalized]; dup {
			c.Stats.ExactDuplicates++
			continue
		}
		if fuzzy != nil {
			if m, ok := fuzzy.Best(normalized); ok {
				log.Debug("dropping near-duplicate corpus entry", "id", r.ID, "match", m.ID, "ratio", m.Ratio)
				c.Stats.FuzzyDuplicates++
				continue
			}
			fuzzy.Add(r.ID, normalized)
		}
		seenText[normalized] = r.ID

		tokens := textnorm.Tokens(normalized)
		e := &slogan.CorpusEntry{
			ID:         r.ID,
			Text:       text,
			Normalized: normalized,
			Lang:       r.Lang,
			Tokens:     tokens,
			NGrams:     ngram.Extract(tokens, opts.NGramSize),
		}
		c.Entries = append(c.Entries, e)
		c.byID[e.ID] = e
	}

	if err := c.embed(ctx, provider, opts.Workers); err != nil {
		return nil, err
	}
	c.Stats.compute(c.Entries)
	for _, e := range c.Entries {
		seen := make(map[string]struct{}, len(e.Tokens))
		for _, tok := range e.Tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			c.docFreq[tok]++
		}
	}

	log.Info("corpus built",
		"raw", c.Stats.Raw,
		"entries", len(c.Entries),
		"invalid", c.Stats.Invalid,
		"exact_duplicates", c.Stats.ExactDuplicates,
		"fuzzy_duplicates", c.Stats.FuzzyDuplicates,
		"model", provider.Model(),
		"duration", time.Since(start),
	)
	return c, nil
}

func (c *Corpus) addExactKey(normalized, id string) {
	if normalized == "" {
		return
	}
	if _, ok := c.ExactKeys[normalized]; !ok {
		c.ExactKeys[normalized] = id
	}
}

func (c *Corpus) embed(ctx context.Context, provider embedding.Provider, workers int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, e := range c.Entries {
		g.Go(func() error {
			v, err := provider.Embed(gctx, e.Normalized)
			if err != nil {
				return apperrors.Newf(apperrors.ErrEmbedding, "corpus", "embedding entry %s: %v", e.ID, err)
			}
			if len(v) == 0 {
				return apperrors.Newf(apperrors.ErrEmbedding, "corpus", "empty embedding for entry %s", e.ID)
			}
			e.Embedding = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("embedding corpus: %w", err)
	}
	return nil
}

// Get returns the entry with id.
func (c *Corpus) Get(id string) (*slogan.CorpusEntry, bool) {
	e, ok := c.byID[id]
	return e, ok
}

func (c *Corpus) Len() int {
	return len(c.Entries)
}

// DocFreq returns the number of entries containing token.
func (c *Corpus) DocFreq(token string) int {
	return c.docFreq[token]
}

// Vocabulary returns the token document-frequency table. Callers must not
// modify it.
func (c *Corpus) Vocabulary() map[string]int {
	return c.docFreq
}
