// Package pipeline runs a candidate pool through the curation stages in
// order: normalize, exact and fuzzy dedup, n-gram overlap, embedding
// similarity, safety, scoring and ranking. Per-candidate work inside a
// stage runs on a bounded worker pool; comparisons against earlier accepted
// candidates and the final ranking run sequentially so a run is
// reproducible for the same corpus, pool and configuration.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/dedup"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/ngram"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/safety"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/simindex"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/textnorm"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/tracing"
)

// Deps are the collaborators a pipeline reads from. Corpus, Embedder,
// Safety and Scorer are required. Index is built from the corpus when nil;
// Normalizer and Metrics are optional.
type Deps struct {
	Corpus     *corpus.Corpus
	Index      *simindex.Index
	Embedder   embedding.Provider
	Safety     *safety.Filter
	Scorer     *scorer.Scorer
	Normalizer *textnorm.Normalizer
	Metrics    *metrics.Metrics
}

type Options struct {
	FuzzyThreshold     float64
	NGramSize          int
	NGramThreshold     float64
	SemanticThreshold  float64
	Neighbors          int
	CompareWithinPool  bool
	K                  int
	DiversityThreshold float64
	Workers            int
	Seed               int64
	RunID              string
}

// OptionsFromConfig maps the loaded configuration onto run options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		FuzzyThreshold:     cfg.Novelty.FuzzyThreshold,
		NGramSize:          cfg.Novelty.NGramSize,
		NGramThreshold:     cfg.Novelty.NGramThreshold,
		SemanticThreshold:  cfg.Novelty.SemanticThreshold,
		Neighbors:          cfg.Novelty.Neighbors,
		CompareWithinPool:  cfg.Novelty.CompareWithinPool,
		K:                  cfg.Ranker.K,
		DiversityThreshold: cfg.Ranker.DiversityThreshold,
		Workers:            cfg.Pipeline.Workers,
		Seed:               cfg.Pipeline.Seed,
		RunID:              cfg.Pipeline.RunID,
	}
}

// StageStat summarises one stage of a run.
type StageStat struct {
	Stage     string        `json:"stage"`
	Input     int           `json:"input"`
	Survivors int           `json:"survivors"`
	Duration  time.Duration `json:"duration_ns"`
}

// Result is everything a run produced.
type Result struct {
	Shortlist  *slogan.Shortlist
	Candidates []*slogan.Candidate
	Histogram  map[string]int
	Failures   int
	Stages     []StageStat
	Skipped    []ranker.Skip
	Span       *tracing.Span
}

type Pipeline struct {
	deps       Deps
	opts       Options
	normalizer *textnorm.Normalizer
	dedup      *dedup.Deduplicator
	ngrams     *ngram.Detector
	similarity *simindex.Checker
	logger     *slog.Logger
}

// New indexes the corpus for every novelty check. Index build problems are
// fatal and reported before any candidate is touched.
func New(deps Deps, opts Options) (*Pipeline, error) {
	if deps.Corpus == nil || deps.Embedder == nil || deps.Safety == nil || deps.Scorer == nil {
		return nil, apperrors.New(apperrors.ErrInvalidConfig, "pipeline", "corpus, embedder, safety filter and scorer are required")
	}
	if opts.NGramSize <= 0 {
		opts.NGramSize = 5
	}
	if opts.Neighbors <= 0 {
		opts.Neighbors = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if deps.Index == nil {
		ix, err := simindex.Build(deps.Corpus.Entries)
		if err != nil {
			return nil, err
		}
		deps.Index = ix
	}
	norm := deps.Normalizer
	if norm == nil {
		norm = textnorm.New(textnorm.Options{})
	}
	dd := dedup.New(deps.Corpus.Entries, opts.FuzzyThreshold)
	for normalized, id := range deps.Corpus.ExactKeys {
		dd.AddExact(normalized, id)
	}
	return &Pipeline{
		deps:       deps,
		opts:       opts,
		normalizer: norm,
		dedup:      dd,
		ngrams:     ngram.NewDetector(deps.Corpus.Entries, opts.NGramSize, opts.NGramThreshold),
		similarity: simindex.NewChecker(deps.Index, opts.SemanticThreshold, opts.Neighbors),
		logger:     logger.WithComponent("pipeline"),
	}, nil
}

// Run curates cands and returns the shortlist. Candidates are mutated in
// place. The only errors are context cancellation and internal faults;
// per-candidate problems are recorded on the candidate.
func (p *Pipeline) Run(ctx context.Context, cands []*slogan.Candidate) (*Result, error) {
	runID := p.opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = logger.WithRunID(ctx, runID)
	ctx, root := tracing.StartSpan(ctx, "curation-run", runID)
	log := logger.FromContext(ctx).With("component", "pipeline")

	ordered := make([]*slogan.Candidate, len(cands))
	copy(ordered, cands)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Seq != ordered[j].Seq {
			return ordered[i].Seq < ordered[j].Seq
		}
		return ordered[i].ID < ordered[j].ID
	})
	p.count(len(ordered))
	log.Info("run started", "candidates", len(ordered), "corpus", p.deps.Corpus.Len(), "seed", p.opts.Seed)

	res := &Result{Candidates: ordered, Span: root}
	stages := []struct {
		name string
		fn   func(context.Context, []*slogan.Candidate) error
	}{
		{slogan.StageNormalize, p.normalize},
		{slogan.StageExact, p.exact},
		{slogan.StageFuzzy, p.fuzzy},
		{slogan.StageNGram, p.ngram},
		{slogan.StageSemantic, p.semantic},
		{slogan.StageSafety, p.safety},
		{slogan.StageScore, p.score},
	}
	for _, st := range stages {
		stat, err := p.runStage(ctx, st.name, ordered, st.fn)
		if err != nil {
			root.End()
			return nil, fmt.Errorf("stage %s: %w", st.name, err)
		}
		res.Stages = append(res.Stages, stat)
		log.Info("stage complete", "stage", st.name, "input", stat.Input, "survivors", stat.Survivors, "duration", stat.Duration)
	}

	var sel ranker.Selection
	stat, _ := p.runStage(ctx, slogan.StageRank, ordered, func(context.Context, []*slogan.Candidate) error {
		sel = ranker.Select(ordered, ranker.Options{K: p.opts.K, DiversityThreshold: p.opts.DiversityThreshold})
		return nil
	})
	stat.Survivors = len(sel.Items)
	res.Stages = append(res.Stages, stat)
	res.Skipped = sel.Skipped

	res.Histogram = make(map[string]int)
	for _, c := range ordered {
		if rej := c.Rejection(); rej != nil {
			res.Histogram[rej.Reason]++
			if rej.Kind == slogan.KindFailed {
				res.Failures++
			}
		}
	}
	res.Shortlist = &slogan.Shortlist{
		RunID:      runID,
		Seed:       p.opts.Seed,
		K:          p.opts.K,
		CreatedAt:  time.Now().UTC(),
		Items:      sel.Items,
		Rejections: res.Histogram,
	}
	p.observeRun(res)

	root.SetAttr("candidates", len(ordered))
	root.SetAttr("shortlisted", len(sel.Items))
	root.End()
	log.Info("run finished",
		"shortlisted", len(sel.Items),
		"diversity_skips", len(sel.Skipped),
		"failures", res.Failures,
		"duration", root.Duration,
	)
	return res, nil
}

func (p *Pipeline) runStage(ctx context.Context, name string, cands []*slogan.Candidate, fn func(context.Context, []*slogan.Candidate) error) (StageStat, error) {
	if err := ctx.Err(); err != nil {
		return StageStat{Stage: name}, err
	}
	stat := StageStat{Stage: name, Input: alive(cands)}
	sctx, span := tracing.StartChildSpan(ctx, name)
	start := time.Now()
	err := fn(sctx, cands)
	stat.Duration = time.Since(start)
	stat.Survivors = alive(cands)
	span.SetAttr("input", stat.Input)
	span.SetAttr("survivors", stat.Survivors)
	span.End()
	if m := p.deps.Metrics; m != nil {
		m.StageDuration.WithLabelValues(name).Observe(stat.Duration.Seconds())
		m.StageSurvivors.WithLabelValues(name).Set(float64(stat.Survivors))
	}
	return stat, err
}

// each runs fn for every live candidate on the worker pool. Candidates
// rejected earlier in the stage are skipped.
func (p *Pipeline) each(ctx context.Context, cands []*slogan.Candidate, fn func(context.Context, *slogan.Candidate) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for _, c := range cands {
		if !c.Alive() {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, c)
		})
	}
	return g.Wait()
}

func (p *Pipeline) normalize(ctx context.Context, cands []*slogan.Candidate) error {
	seen := make(map[string]struct{}, len(cands))
	for _, c := range cands {
		if _, dup := seen[c.ID]; dup {
			c.Fail(slogan.StageNormalize, slogan.ReasonMalformedInput, "duplicate candidate id")
			continue
		}
		seen[c.ID] = struct{}{}
	}
	return p.each(ctx, cands, func(_ context.Context, c *slogan.Candidate) error {
		if err := p.normalizer.Validate(c.Text); err != nil {
			c.Fail(slogan.StageNormalize, slogan.ReasonMalformedInput, err.Error())
			return nil
		}
		c.Normalized = p.normalizer.Normalize(c.Text, c.Lang)
		c.Tokens = textnorm.Tokens(c.Normalized)
		c.NGrams = ngram.Extract(c.Tokens, p.ngrams.N())
		return nil
	})
}

func (p *Pipeline) exact(_ context.Context, cands []*slogan.Candidate) error {
	p.dedup.ExactPass(cands)
	return nil
}

func (p *Pipeline) fuzzy(ctx context.Context, cands []*slogan.Candidate) error {
	err := p.each(ctx, cands, func(_ context.Context, c *slogan.Candidate) error {
		p.dedup.CheckCorpus(c)
		return nil
	})
	if err != nil {
		return err
	}
	if p.opts.CompareWithinPool {
		p.dedup.PoolPass(cands)
	}
	return nil
}

func (p *Pipeline) ngram(ctx context.Context, cands []*slogan.Candidate) error {
	err := p.each(ctx, cands, func(_ context.Context, c *slogan.Candidate) error {
		p.ngrams.CheckCorpus(c)
		return nil
	})
	if err != nil {
		return err
	}
	if p.opts.CompareWithinPool {
		p.ngrams.PoolPass(cands)
	}
	return nil
}

// semantic embeds each candidate (full text and both halves for the twist
// score) and checks it against the corpus index. Provider errors fail only
// the candidate.
func (p *Pipeline) semantic(ctx context.Context, cands []*slogan.Candidate) error {
	return p.each(ctx, cands, func(ctx context.Context, c *slogan.Candidate) error {
		full, err := p.deps.Embedder.Embed(ctx, c.Normalized)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Fail(slogan.StageSemantic, slogan.ReasonEmbeddingError, err.Error())
			return nil
		}
		var head, tail []float32
		if h, t, ok := textnorm.SplitHalves(c.Tokens); ok {
			if head, err = p.deps.Embedder.Embed(ctx, h); err == nil {
				tail, err = p.deps.Embedder.Embed(ctx, t)
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.Fail(slogan.StageSemantic, slogan.ReasonEmbeddingError, "half phrase: "+err.Error())
				return nil
			}
		}
		c.SetEmbeddings(full, head, tail)
		if _, err := p.similarity.Check(c); err != nil {
			c.Fail(slogan.StageSemantic, slogan.ReasonEmbeddingError, err.Error())
		}
		return nil
	})
}

func (p *Pipeline) safety(ctx context.Context, cands []*slogan.Candidate) error {
	return p.each(ctx, cands, p.deps.Safety.Check)
}

func (p *Pipeline) score(ctx context.Context, cands []*slogan.Candidate) error {
	return p.each(ctx, cands, func(_ context.Context, c *slogan.Candidate) error {
		q := p.deps.Scorer.Score(c)
		if dim, below := p.deps.Scorer.BelowMinimum(q); below {
			c.Reject(slogan.StageScore, slogan.QualityReason(dim),
				fmt.Sprintf("%s below configured minimum", dim))
		}
		return nil
	})
}

func (p *Pipeline) count(n int) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.CandidatesTotal.Add(float64(n))
	}
}

func (p *Pipeline) observeRun(res *Result) {
	m := p.deps.Metrics
	if m == nil {
		return
	}
	for _, c := range res.Candidates {
		rej := c.Rejection()
		if rej == nil {
			continue
		}
		if rej.Kind == slogan.KindFailed {
			m.FailuresTotal.WithLabelValues(rej.Stage).Inc()
			continue
		}
		m.RejectionsTotal.WithLabelValues(rej.Reason).Inc()
	}
	m.ShortlistSize.Set(float64(len(res.Shortlist.Items)))
	m.DiversitySkips.Add(float64(len(res.Skipped)))
	m.CorpusEntries.Set(float64(p.deps.Corpus.Len()))
}

func alive(cands []*slogan.Candidate) int {
	n := 0
	for _, c := range cands {
		if c.Alive() {
			n++
		}
	}
	return n
}
