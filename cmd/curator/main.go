package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/candidates"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/export"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/publisher"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/safety"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/scorer"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/simindex"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/textnorm"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/vectorstore"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/resilience"
)

const preflightTimeout = 10 * time.Second

type flags struct {
	purgeCache bool
}

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	candidatesPath := flag.String("candidates", "", "candidate file (overrides candidates.path)")
	seed := flag.Int64("seed", 0, "run seed (overrides pipeline.seed)")
	runID := flag.String("run-id", "", "run id (overrides pipeline.runId)")
	k := flag.Int("k", 0, "shortlist size (overrides ranker.k)")
	purge := flag.Bool("purge-embedding-cache", false, "drop cached embeddings for the configured model before the run")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "candidates":
			cfg.Candidates.Path = *candidatesPath
		case "seed":
			cfg.Pipeline.Seed = *seed
		case "run-id":
			cfg.Pipeline.RunID = *runID
		case "k":
			cfg.Ranker.K = *k
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid flags: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting slogan curator",
		"corpus_source", cfg.Corpus.Source,
		"candidate_source", cfg.Candidates.Source,
		"embedding_provider", cfg.Embedding.Provider,
		"k", cfg.Ranker.K,
		"seed", cfg.Pipeline.Seed,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, flags{purgeCache: *purge})
	stop()
	if err != nil {
		slog.Error("curation run failed", "error", err, "stage", apperrors.Stage(err))
		os.Exit(apperrors.ExitCode(err))
	}
	slog.Info("slogan curator finished")
}

func run(ctx context.Context, cfg *config.Config, fl flags) error {
	m := metrics.New()
	checker := health.NewChecker()

	var pg *postgres.Client
	if cfg.Postgres.Enabled {
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer client.Close()
		pg = client
		checker.Register("postgres", health.PingCheck(pg.Ping))
	}

	var cache *redis.Client
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("embedding cache unavailable, continuing without it", "error", err)
		} else {
			defer client.Close()
			cache = client
			checker.RegisterOptional("redis", health.PingCheck(cache.Ping))
		}
	}

	base, err := embedding.NewFromConfig(cfg.Embedding)
	if err != nil {
		return err
	}
	if _, remote := base.(*embedding.HTTPClient); remote {
		checker.Register("embedding", health.PingCheck(func(ctx context.Context) error {
			_, err := base.Embed(ctx, "health check")
			return err
		}))
	}

	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Port, checker.ReadyHandler())
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(sctx)
		}()
	}

	if err := resilience.WithTimeout(ctx, preflightTimeout, "preflight", func(ctx context.Context) error {
		report := checker.Run(ctx)
		if report.Status == health.StatusDown {
			return fmt.Errorf("required dependencies down: %v", report.Failing())
		}
		if report.Status == health.StatusDegraded {
			slog.Warn("running degraded", "failing", report.Failing())
		}
		return nil
	}); err != nil {
		return err
	}

	provider := base
	if cache != nil {
		cached := embedding.NewCachedProvider(base, cache, m)
		if fl.purgeCache {
			n, err := cached.Purge(ctx)
			if err != nil {
				return fmt.Errorf("purging embedding cache: %w", err)
			}
			slog.Info("embedding cache purged", "keys", n)
		}
		provider = cached
	}

	corpusProvider := provider
	if cfg.VectorStore.Enabled {
		vs, err := vectorstore.Open(cfg.VectorStore.Path)
		if err != nil {
			return err
		}
		defer vs.Close()
		corpusProvider = vectorstore.NewProvider(vs, provider)
	}

	corp, err := loadCorpus(ctx, cfg, pg, corpusProvider)
	if err != nil {
		return err
	}
	m.CorpusEntries.Set(float64(corp.Len()))

	var classifier safety.Classifier
	if cfg.Safety.Classifier.Enabled {
		classifier = safety.NewHTTPClassifier(cfg.Safety.Classifier.Endpoint, cfg.Safety.Classifier.APIKey)
	}
	filter, err := safety.New(cfg.Safety, classifier, m)
	if err != nil {
		return err
	}

	index, err := simindex.Build(corp.Entries)
	if err != nil {
		return err
	}

	p, err := pipeline.New(pipeline.Deps{
		Corpus:     corp,
		Index:      index,
		Embedder:   provider,
		Safety:     filter,
		Scorer:     scorer.New(cfg.Quality, corp.Vocabulary()),
		Normalizer: newNormalizer(cfg),
		Metrics:    m,
	}, pipeline.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}

	pool, err := loadCandidates(ctx, cfg)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx, pool)
	if err != nil {
		return err
	}
	if cfg.Tracing.Enabled && res.Span != nil {
		res.Span.Log(logger.FromContext(ctx))
	}

	exporter, err := export.New(cfg.Output.Dir, cfg.Output.ReportDir, cfg.Output.Formats)
	if err != nil {
		return err
	}
	if _, err := exporter.Export(export.Run{
		Result: res,
		Corpus: corp.Stats,
		Settings: export.Settings{
			FuzzyThreshold:     cfg.Novelty.FuzzyThreshold,
			NGramSize:          cfg.Novelty.NGramSize,
			NGramThreshold:     cfg.Novelty.NGramThreshold,
			SemanticThreshold:  cfg.Novelty.SemanticThreshold,
			DiversityThreshold: cfg.Ranker.DiversityThreshold,
			EmbeddingModel:     provider.Model(),
		},
	}); err != nil {
		return err
	}

	if pg != nil {
		st := store.New(pg)
		if err := st.Migrate(ctx); err != nil {
			return err
		}
		if err := st.SaveRun(ctx, res); err != nil {
			return err
		}
	}

	if cfg.Kafka.PublishShortlist {
		if err := publish(ctx, cfg, res); err != nil {
			return err
		}
	}

	m.LastRunSuccessSeconds.SetToCurrentTime()
	if cfg.Metrics.PushgatewayURL != "" {
		pctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.Push(pctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.JobName, res.Shortlist.RunID); err != nil {
			slog.Warn("metrics push failed", "error", err)
		}
	}

	slog.Info("run complete",
		"run_id", res.Shortlist.RunID,
		"candidates", len(res.Candidates),
		"shortlisted", len(res.Shortlist.Items),
		"failures", res.Failures,
	)
	return nil
}

func newNormalizer(cfg *config.Config) *textnorm.Normalizer {
	return textnorm.New(textnorm.Options{
		Transliterate: cfg.Normalizer.Transliterate,
		MaxRunes:      cfg.Normalizer.MaxRunes,
	})
}

func loadCorpus(ctx context.Context, cfg *config.Config, pg *postgres.Client, provider embedding.Provider) (*corpus.Corpus, error) {
	var src corpus.Source
	var err error
	if pg != nil {
		src, err = corpus.NewSource(cfg.Corpus, pg.DB)
	} else {
		src, err = corpus.NewSource(cfg.Corpus, nil)
	}
	if err != nil {
		return nil, err
	}
	records, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return corpus.Build(ctx, records, provider, corpus.BuildOptions{
		MinLength:      cfg.Corpus.MinLength,
		DedupThreshold: cfg.Corpus.DedupThreshold,
		NGramSize:      cfg.Novelty.NGramSize,
		Workers:        cfg.Pipeline.Workers,
		Normalizer:     newNormalizer(cfg),
	})
}

func loadCandidates(ctx context.Context, cfg *config.Config) ([]*slogan.Candidate, error) {
	var drainer candidates.Drainer
	if cfg.Candidates.Source == "kafka" {
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.Candidates)
		defer consumer.Close()
		drainer = consumer
	}
	src, err := candidates.NewSource(cfg.Candidates, cfg.Pipeline.Seed, drainer)
	if err != nil {
		return nil, err
	}
	return src.Load(ctx)
}

func publish(ctx context.Context, cfg *config.Config, res *pipeline.Result) error {
	shortlist := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Shortlist)
	defer shortlist.Close()
	pub := publisher.New(shortlist, nil)
	if cfg.Kafka.Topics.RunEvents != "" {
		runs := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.RunEvents)
		defer runs.Close()
		pub = publisher.New(shortlist, runs)
	}
	return pub.Publish(ctx, res)
}
