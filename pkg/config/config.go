// Package config loads and validates the curation pipeline configuration from
// YAML files with environment-variable overrides. It provides typed structs
// for every subsystem (corpus, novelty thresholds, safety rules, quality
// weights, ranker, and the Postgres/Redis/Kafka collaborators).
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Tracing     TracingConfig     `yaml:"tracing"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Redis       RedisConfig       `yaml:"redis"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Corpus      CorpusConfig      `yaml:"corpus"`
	Candidates  CandidatesConfig  `yaml:"candidates"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vectorStore"`
	Normalizer  NormalizerConfig  `yaml:"normalizer"`
	Novelty     NoveltyConfig     `yaml:"novelty"`
	Safety      SafetyConfig      `yaml:"safety"`
	Quality     QualityConfig     `yaml:"quality"`
	Ranker      RankerConfig      `yaml:"ranker"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Output      OutputConfig      `yaml:"output"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server and the end-of-run
// Pushgateway push.
type MetricsConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Port           int    `yaml:"port"`
	PushgatewayURL string `yaml:"pushgatewayUrl"`
	JobName        string `yaml:"jobName"`
}

// TracingConfig toggles stage span logging.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection parameters for the embedding cache.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers          []string    `yaml:"brokers"`
	ConsumerGroup    string      `yaml:"consumerGroup"`
	PublishShortlist bool        `yaml:"publishShortlist"`
	Topics           KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	Candidates string `yaml:"candidates"`
	Shortlist  string `yaml:"shortlist"`
	RunEvents  string `yaml:"runEvents"`
}

// CorpusConfig selects the corpus source and its preprocessing rules.
type CorpusConfig struct {
	Source         string   `yaml:"source"`
	Paths          []string `yaml:"paths"`
	DefaultLang    string   `yaml:"defaultLang"`
	HTMLSelector   string   `yaml:"htmlSelector"`
	Table          string   `yaml:"table"`
	MinLength      int      `yaml:"minLength"`
	DedupThreshold float64  `yaml:"dedupThreshold"`
}

// CandidatesConfig selects where the raw candidate pool comes from.
type CandidatesConfig struct {
	Source         string        `yaml:"source"`
	Path           string        `yaml:"path"`
	Lang           string        `yaml:"lang"`
	Limit          int           `yaml:"limit"`
	IdleTimeout    time.Duration `yaml:"idleTimeout"`
	GeneratorCount int           `yaml:"generatorCount"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider    string        `yaml:"provider"`
	BaseURL     string        `yaml:"baseUrl"`
	APIKey      string        `yaml:"apiKey"`
	Model       string        `yaml:"model"`
	Dimensions  int           `yaml:"dimensions"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"maxAttempts"`
}

// VectorStoreConfig controls the on-disk corpus embedding snapshot.
type VectorStoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// NormalizerConfig controls text canonicalisation.
type NormalizerConfig struct {
	Transliterate bool `yaml:"transliterate"`
	MaxRunes      int  `yaml:"maxRunes"`
}

// NoveltyConfig holds the duplicate-detection thresholds.
type NoveltyConfig struct {
	FuzzyThreshold    float64 `yaml:"fuzzyThreshold"`
	NGramSize         int     `yaml:"ngramSize"`
	NGramThreshold    float64 `yaml:"ngramThreshold"`
	SemanticThreshold float64 `yaml:"semanticThreshold"`
	Neighbors         int     `yaml:"neighbors"`
	CompareWithinPool bool    `yaml:"compareWithinPool"`
}

// SafetyRule is a single (pattern, rule-id) pair. Target selects the text
// the pattern runs against: "normalized" (default) or "original" for
// patterns that depend on punctuation or symbols.
type SafetyRule struct {
	ID      string `yaml:"id"`
	Pattern string `yaml:"pattern"`
	Target  string `yaml:"target"`
}

// ClassifierConfig configures the optional external safety classifier.
type ClassifierConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Endpoint          string        `yaml:"endpoint"`
	APIKey            string        `yaml:"apiKey"`
	Timeout           time.Duration `yaml:"timeout"`
	UnavailablePolicy string        `yaml:"unavailablePolicy"`
	FailureThreshold  int           `yaml:"failureThreshold"`
	ResetTimeout      time.Duration `yaml:"resetTimeout"`
}

// SafetyConfig holds the ordered rule list and classifier settings.
type SafetyConfig struct {
	Rules      []SafetyRule     `yaml:"rules"`
	Classifier ClassifierConfig `yaml:"classifier"`
}

// QualityWeights are the composite-score weights. They must sum to 1.
type QualityWeights struct {
	Punchiness float64 `yaml:"punchiness"`
	Wit        float64 `yaml:"wit"`
	Clarity    float64 `yaml:"clarity"`
	Twist      float64 `yaml:"twist"`
}

// Sum returns the total of all four weights.
func (w QualityWeights) Sum() float64 {
	return w.Punchiness + w.Wit + w.Clarity + w.Twist
}

// QualityMinimums are optional per-dimension floors; zero disables a floor.
type QualityMinimums struct {
	Punchiness float64 `yaml:"punchiness"`
	Wit        float64 `yaml:"wit"`
	Clarity    float64 `yaml:"clarity"`
	Twist      float64 `yaml:"twist"`
}

// QualityConfig controls the heuristic scorer.
type QualityConfig struct {
	Weights       QualityWeights  `yaml:"weights"`
	Minimums      QualityMinimums `yaml:"minimums"`
	IdealWords    float64         `yaml:"idealWords"`
	WordSpread    float64         `yaml:"wordSpread"`
	RareDocFreq   int             `yaml:"rareDocFreq"`
	LongWordRunes int             `yaml:"longWordRunes"`
}

// RankerConfig controls final selection.
type RankerConfig struct {
	K                  int     `yaml:"k"`
	DiversityThreshold float64 `yaml:"diversityThreshold"`
}

// PipelineConfig controls run identity and parallelism.
type PipelineConfig struct {
	Workers int    `yaml:"workers"`
	Seed    int64  `yaml:"seed"`
	RunID   string `yaml:"runId"`
}

// OutputConfig controls where exports land.
type OutputConfig struct {
	Dir       string   `yaml:"dir"`
	ReportDir string   `yaml:"reportDir"`
	Formats   []string `yaml:"formats"`
}

// Load reads a YAML config file (if provided), applies environment-variable
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with the defaults used for local runs.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			JobName: "slogan-curator",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "slogans",
			User:            "slogans",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 7 * 24 * time.Hour,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "slogan-curator",
			Topics: KafkaTopics{
				Candidates: "slogan-candidates",
				Shortlist:  "slogan-shortlist",
				RunEvents:  "slogan-runs",
			},
		},
		Corpus: CorpusConfig{
			Source:         "file",
			DefaultLang:    "en",
			HTMLSelector:   "li",
			Table:          "corpus_slogans",
			MinLength:      5,
			DedupThreshold: 0.92,
		},
		Candidates: CandidatesConfig{
			Source:         "file",
			Lang:           "en",
			IdleTimeout:    10 * time.Second,
			GeneratorCount: 2500,
		},
		Embedding: EmbeddingConfig{
			Provider:    "hash",
			BaseURL:     "http://localhost:11434/v1",
			Model:       "hash-trigram-256",
			Dimensions:  256,
			Timeout:     60 * time.Second,
			MaxAttempts: 3,
		},
		VectorStore: VectorStoreConfig{
			Path: ".cache/corpus_vectors.db",
		},
		Normalizer: NormalizerConfig{
			MaxRunes: 280,
		},
		Novelty: NoveltyConfig{
			FuzzyThreshold:    0.90,
			NGramSize:         5,
			NGramThreshold:    0.0,
			SemanticThreshold: 0.80,
			Neighbors:         5,
			CompareWithinPool: true,
		},
		Safety: SafetyConfig{
			Rules: DefaultSafetyRules(),
			Classifier: ClassifierConfig{
				Timeout:           2 * time.Second,
				UnavailablePolicy: "reject",
				FailureThreshold:  5,
				ResetTimeout:      30 * time.Second,
			},
		},
		Quality: QualityConfig{
			Weights: QualityWeights{
				Punchiness: 0.35,
				Wit:        0.30,
				Clarity:    0.20,
				Twist:      0.15,
			},
			IdealWords:    4,
			WordSpread:    2,
			RareDocFreq:   1,
			LongWordRunes: 12,
		},
		Ranker: RankerConfig{
			K:                  400,
			DiversityThreshold: 0.90,
		},
		Pipeline: PipelineConfig{
			Seed: 2025,
		},
		Output: OutputConfig{
			Dir:       "out",
			ReportDir: "reports",
			Formats:   []string{"json", "jsonl", "csv", "txt", "report"},
		},
	}
}

// DefaultSafetyRules returns the built-in English and Russian rule set.
func DefaultSafetyRules() []SafetyRule {
	return []SafetyRule{
		{ID: "claims-en", Pattern: `\b(guarantee[sd]?|cures?|heals?|forever)\b`},
		{ID: "percent-claim", Pattern: `100 ?%`, Target: "original"},
		{ID: "superlative-en", Pattern: `\b(best|perfect|unbeatable|number one)\b`},
		{ID: "rank-claim", Pattern: `#1\b`, Target: "original"},
		{ID: "trademark", Pattern: `[®™©]`, Target: "original"},
		{ID: "competitor-en", Pattern: `\b(competitors?|rivals?)\b`},
		{ID: "claims-ru", Pattern: `(гарантир|лечит|излечи|вылечи|навсегда)`},
		{ID: "superlative-ru", Pattern: `(лучш|идеальн|непревзойд|номер один)`},
		{ID: "competitor-ru", Pattern: `(конкурент|соперник)`},
	}
}

// Validate reports the first configuration problem it finds.
func (c *Config) Validate() error {
	inUnit := func(name string, v float64) error {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return apperrors.Newf(apperrors.ErrInvalidConfig, "config", "%s must be within [0,1], got %v", name, v)
		}
		return nil
	}
	checks := []struct {
		name  string
		value float64
	}{
		{"novelty.fuzzyThreshold", c.Novelty.FuzzyThreshold},
		{"novelty.ngramThreshold", c.Novelty.NGramThreshold},
		{"novelty.semanticThreshold", c.Novelty.SemanticThreshold},
		{"corpus.dedupThreshold", c.Corpus.DedupThreshold},
		{"quality.weights.punchiness", c.Quality.Weights.Punchiness},
		{"quality.weights.wit", c.Quality.Weights.Wit},
		{"quality.weights.clarity", c.Quality.Weights.Clarity},
		{"quality.weights.twist", c.Quality.Weights.Twist},
		{"quality.minimums.punchiness", c.Quality.Minimums.Punchiness},
		{"quality.minimums.wit", c.Quality.Minimums.Wit},
		{"quality.minimums.clarity", c.Quality.Minimums.Clarity},
		{"quality.minimums.twist", c.Quality.Minimums.Twist},
	}
	for _, chk := range checks {
		if err := inUnit(chk.name, chk.value); err != nil {
			return err
		}
	}
	if sum := c.Quality.Weights.Sum(); math.Abs(sum-1) > 1e-6 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "config", "quality weights must sum to 1, got %v", sum)
	}
	if c.Novelty.NGramSize < 1 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "config", "novelty.ngramSize must be >= 1, got %d", c.Novelty.NGramSize)
	}
	if c.Novelty.Neighbors < 1 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "config", "novelty.neighbors must be >= 1, got %d", c.Novelty.Neighbors)
	}
	if c.Ranker.K < 1 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "config", "ranker.k must be >= 1, got %d", c.Ranker.K)
	}
	if c.Ranker.DiversityThreshold < 0 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "config", "ranker.diversityThreshold must be >= 0, got %v", c.Ranker.DiversityThreshold)
	}
	if c.Quality.WordSpread <= 0 {
		return apperrors.Newf(apperrors.ErrInvalidConfig, "config", "quality.wordSpread must be > 0, got %v", c.Quality.WordSpread)
	}
	switch c.Safety.Classifier.UnavailablePolicy {
	case "reject", "skip":
	default:
		return apperrors.Newf(apperrors.ErrInvalidConfig, "config",
			"safety.classifier.unavailablePolicy must be \"reject\" or \"skip\", got %q", c.Safety.Classifier.UnavailablePolicy)
	}
	seen := make(map[string]struct{}, len(c.Safety.Rules))
	for i, rule := range c.Safety.Rules {
		if rule.ID == "" || rule.Pattern == "" {
			return apperrors.Newf(apperrors.ErrInvalidConfig, "config", "safety rule #%d needs both id and pattern", i)
		}
		if _, dup := seen[rule.ID]; dup {
			return apperrors.Newf(apperrors.ErrInvalidConfig, "config", "duplicate safety rule id %q", rule.ID)
		}
		seen[rule.ID] = struct{}{}
		switch rule.Target {
		case "", "normalized", "original":
		default:
			return apperrors.Newf(apperrors.ErrInvalidConfig, "config", "safety rule %q has unknown target %q", rule.ID, rule.Target)
		}
	}
	return nil
}

// applyEnvOverrides reads SC_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SC_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SC_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SC_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SC_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SC_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SC_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SC_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SC_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SC_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SC_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("SC_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("SC_CLASSIFIER_API_KEY"); v != "" {
		cfg.Safety.Classifier.APIKey = v
	}
	if v := os.Getenv("SC_PIPELINE_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Pipeline.Seed = seed
		}
	}
	if v := os.Getenv("SC_PIPELINE_WORKERS"); v != "" {
		if workers, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.Workers = workers
		}
	}
}
