// Package metrics defines the Prometheus collectors used by the curation
// pipeline and exposes an HTTP handler and a Pushgateway push for scraping
// batch runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	Registry *prometheus.Registry

	CandidatesTotal       prometheus.Counter
	RejectionsTotal       *prometheus.CounterVec
	FailuresTotal         *prometheus.CounterVec
	StageDuration         *prometheus.HistogramVec
	StageSurvivors        *prometheus.GaugeVec
	ShortlistSize         prometheus.Gauge
	DiversitySkips        prometheus.Counter
	CorpusEntries         prometheus.Gauge
	EmbeddingCacheHits    prometheus.Counter
	EmbeddingCacheMisses  prometheus.Counter
	ClassifierCallsTotal  *prometheus.CounterVec
	CircuitBreakerState   *prometheus.GaugeVec
	LastRunSuccessSeconds prometheus.Gauge
}

// New creates all collectors and registers them on a fresh registry, so
// several pipelines (or tests) can coexist in one process.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CandidatesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "curator_candidates_total",
				Help: "Total candidates entering the pipeline.",
			},
		),
		RejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curator_rejections_total",
				Help: "Candidates rejected, by reason.",
			},
			[]string{"reason"},
		),
		FailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curator_failures_total",
				Help: "Candidates that failed processing, by stage.",
			},
			[]string{"stage"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "curator_stage_duration_seconds",
				Help:    "Wall time per pipeline stage in seconds.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"stage"},
		),
		StageSurvivors: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "curator_stage_survivors",
				Help: "Candidates still alive after each stage.",
			},
			[]string{"stage"},
		),
		ShortlistSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "curator_shortlist_size",
				Help: "Number of slogans in the final shortlist.",
			},
		),
		DiversitySkips: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "curator_diversity_skips_total",
				Help: "Candidates skipped by the ranker's diversity constraint.",
			},
		),
		CorpusEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "curator_corpus_entries",
				Help: "Reference corpus size after preprocessing.",
			},
		),
		EmbeddingCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "curator_embedding_cache_hits_total",
				Help: "Total embedding cache hits.",
			},
		),
		EmbeddingCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "curator_embedding_cache_misses_total",
				Help: "Total embedding cache misses.",
			},
		),
		ClassifierCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curator_classifier_calls_total",
				Help: "Safety classifier calls by outcome (safe, unsafe, unavailable).",
			},
			[]string{"outcome"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "curator_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		LastRunSuccessSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "curator_last_success_timestamp_seconds",
				Help: "Unix time of the last successful run.",
			},
		),
	}

	m.Registry.MustRegister(
		m.CandidatesTotal,
		m.RejectionsTotal,
		m.FailuresTotal,
		m.StageDuration,
		m.StageSurvivors,
		m.ShortlistSize,
		m.DiversitySkips,
		m.CorpusEntries,
		m.EmbeddingCacheHits,
		m.EmbeddingCacheMisses,
		m.ClassifierCallsTotal,
		m.CircuitBreakerState,
		m.LastRunSuccessSeconds,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Value reads the current value of a single counter or gauge. It returns 0
// for collectors of any other kind.
func Value(c prometheus.Collector) float64 {
	ch := make(chan prometheus.Metric, 1)
	go func() {
		c.Collect(ch)
		close(ch)
	}()
	var total float64
	for metric := range ch {
		var pb dto.Metric
		if err := metric.Write(&pb); err != nil {
			continue
		}
		switch {
		case pb.Counter != nil:
			total += pb.Counter.GetValue()
		case pb.Gauge != nil:
			total += pb.Gauge.GetValue()
		}
	}
	return total
}
