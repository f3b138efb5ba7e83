// Package publisher announces finished runs on Kafka: one event per
// shortlisted slogan on the shortlist topic and a run summary on the run
// events topic.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/logger"
)

// BatchPublisher is satisfied by *kafka.Producer.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// ShortlistEvent is one ranked slogan.
type ShortlistEvent struct {
	RunID       string  `json:"run_id"`
	Rank        int     `json:"rank"`
	CandidateID string  `json:"candidate_id"`
	Text        string  `json:"text"`
	Lang        string  `json:"lang"`
	Score       float64 `json:"score"`
	Punchiness  float64 `json:"punchiness"`
	Wit         float64 `json:"wit"`
	Clarity     float64 `json:"clarity"`
	Twist       float64 `json:"twist"`
}

// RunCompletedEvent summarises a run.
type RunCompletedEvent struct {
	RunID       string         `json:"run_id"`
	Seed        int64          `json:"seed"`
	K           int            `json:"k"`
	Candidates  int            `json:"candidates"`
	Shortlisted int            `json:"shortlisted"`
	Failures    int            `json:"failures"`
	Rejections  map[string]int `json:"rejections"`
	CompletedAt time.Time      `json:"completed_at"`
}

type Publisher struct {
	shortlist BatchPublisher
	runs      BatchPublisher
	logger    *slog.Logger
}

// New takes the shortlist and run-events producers. runs may be nil.
func New(shortlist, runs BatchPublisher) *Publisher {
	return &Publisher{
		shortlist: shortlist,
		runs:      runs,
		logger:    logger.WithComponent("publisher"),
	}
}

// Publish sends the shortlist events keyed by candidate id, then the run
// summary keyed by run id.
func (p *Publisher) Publish(ctx context.Context, res *pipeline.Result) error {
	list := res.Shortlist
	headers := map[string]string{"run_id": list.RunID, "seed": strconv.FormatInt(list.Seed, 10)}

	events := make([]kafka.Event, 0, len(list.Items))
	for i, c := range list.Items {
		events = append(events, kafka.Event{
			Key: c.ID,
			Value: ShortlistEvent{
				RunID:       list.RunID,
				Rank:        i + 1,
				CandidateID: c.ID,
				Text:        c.Text,
				Lang:        c.Lang,
				Score:       c.Composite,
				Punchiness:  c.Quality.Punchiness,
				Wit:         c.Quality.Wit,
				Clarity:     c.Quality.Clarity,
				Twist:       c.Quality.Twist,
			},
			Headers: headers,
		})
	}
	if err := p.shortlist.PublishBatch(ctx, events); err != nil {
		return fmt.Errorf("publishing shortlist: %w", err)
	}

	if p.runs != nil {
		summary := kafka.Event{
			Key: list.RunID,
			Value: RunCompletedEvent{
				RunID:       list.RunID,
				Seed:        list.Seed,
				K:           list.K,
				Candidates:  len(res.Candidates),
				Shortlisted: len(list.Items),
				Failures:    res.Failures,
				Rejections:  res.Histogram,
				CompletedAt: list.CreatedAt,
			},
			Headers: headers,
		}
		if err := p.runs.PublishBatch(ctx, []kafka.Event{summary}); err != nil {
			return fmt.Errorf("publishing run summary: %w", err)
		}
	}
	p.logger.Info("shortlist published", "run_id", list.RunID, "events", len(events))
	return nil
}
