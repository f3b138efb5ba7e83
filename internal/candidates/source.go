// Package candidates loads the raw candidate pool for a run from a JSONL
// or plain-text file, a Kafka topic, or the seeded template generator.
// Every source assigns Seq in arrival order, which the pipeline uses as
// the stable processing order.
package candidates

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/generator"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/logger"
)

// Source yields the candidate pool.
type Source interface {
	Load(ctx context.Context) ([]*slogan.Candidate, error)
}

// Message is the JSON shape of one candidate in JSONL files and on the
// candidates topic.
type Message struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	BriefID string `json:"brief_id,omitempty"`
	Lang    string `json:"lang,omitempty"`
}

// NewSource builds the configured source. drainer is only used by the
// kafka source and may be nil otherwise.
func NewSource(cfg config.CandidatesConfig, seed int64, drainer Drainer) (Source, error) {
	switch cfg.Source {
	case "", "file":
		if cfg.Path == "" {
			return nil, apperrors.New(apperrors.ErrInvalidConfig, "candidates", "candidates.path is required for the file source")
		}
		return &FileSource{Path: cfg.Path, DefaultLang: cfg.Lang}, nil
	case "kafka":
		if drainer == nil {
			return nil, apperrors.New(apperrors.ErrInvalidConfig, "candidates", "kafka candidate source needs a consumer")
		}
		return &KafkaSource{Consumer: drainer, Limit: cfg.Limit, IdleTimeout: cfg.IdleTimeout, DefaultLang: cfg.Lang}, nil
	case "generator":
		return &GeneratorSource{Lang: cfg.Lang, Seed: seed, Count: cfg.GeneratorCount}, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "candidates", "unknown candidate source %q", cfg.Source)
	}
}

// FileSource reads a .jsonl file of Messages, or any other file as one
// candidate per non-empty line. Plain-text ids are "line-<n>".
type FileSource struct {
	Path        string
	DefaultLang string
}

func (s *FileSource) Load(ctx context.Context) ([]*slogan.Candidate, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening candidates file: %w", err)
	}
	defer f.Close()

	jsonl := strings.EqualFold(filepath.Ext(s.Path), ".jsonl")
	var out []*slogan.Candidate
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		msg := Message{ID: fmt.Sprintf("line-%d", line), Text: raw}
		if jsonl {
			msg = Message{}
			if err := json.Unmarshal([]byte(raw), &msg); err != nil {
				return nil, apperrors.Newf(apperrors.ErrMalformedInput, "candidates", "%s line %d: %v", s.Path, line, err)
			}
			if msg.ID == "" {
				msg.ID = fmt.Sprintf("line-%d", line)
			}
		}
		out = append(out, toCandidate(msg, len(out), s.DefaultLang))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading candidates file: %w", err)
	}
	return out, nil
}

func toCandidate(msg Message, seq int, defaultLang string) *slogan.Candidate {
	lang := msg.Lang
	if lang == "" {
		lang = defaultLang
	}
	c := slogan.NewCandidate(msg.ID, msg.Text, lang, seq)
	c.BriefID = msg.BriefID
	return c
}

// Drainer is the part of the Kafka consumer the source needs.
type Drainer interface {
	Drain(ctx context.Context, limit int, idle time.Duration, handler kafka.MessageHandler) (int, error)
}

// KafkaSource drains the candidates topic until Limit messages arrived or
// the topic stays idle for IdleTimeout. Undecodable messages are skipped.
type KafkaSource struct {
	Consumer    Drainer
	Limit       int
	IdleTimeout time.Duration
	DefaultLang string
}

func (s *KafkaSource) Load(ctx context.Context) ([]*slogan.Candidate, error) {
	log := logger.WithComponent("candidates")
	var (
		mu  sync.Mutex
		out []*slogan.Candidate
	)
	handled, err := s.Consumer.Drain(ctx, s.Limit, s.IdleTimeout, func(_ context.Context, key, value []byte) error {
		msg, err := kafka.DecodeJSON[Message](value)
		if err != nil {
			return err
		}
		if msg.ID == "" {
			msg.ID = string(key)
		}
		if msg.ID == "" {
			return fmt.Errorf("candidate message without id")
		}
		mu.Lock()
		out = append(out, toCandidate(msg, len(out), s.DefaultLang))
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("draining candidates topic: %w", err)
	}
	log.Info("candidates drained from kafka", "count", handled)
	return out, nil
}

// GeneratorSource produces a reproducible pool from templates.
type GeneratorSource struct {
	Lang  string
	Seed  int64
	Count int
}

func (s *GeneratorSource) Load(ctx context.Context) ([]*slogan.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Count <= 0 {
		return nil, apperrors.New(apperrors.ErrInvalidConfig, "candidates", "candidates.generatorCount must be > 0")
	}
	return generator.New(s.Lang, s.Seed).Generate(s.Count), nil
}
