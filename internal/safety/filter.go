// Package safety rejects candidates that match a configured rule list or
// that an optional external classifier flags as unsafe. Rule matching is
// local and deterministic; the classifier runs behind a timeout and a
// circuit breaker with a configurable policy for when it is unavailable.
package safety

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/resilience"
)

// Policy decides what happens when the classifier cannot answer.
type Policy string

const (
	PolicyReject Policy = "reject"
	PolicySkip   Policy = "skip"
)

// CaveatClassifierSkipped marks candidates that passed without a
// classifier verdict under the skip policy.
const CaveatClassifierSkipped = "classifier_unavailable"

// Target is the text form a rule is matched against.
type Target string

const (
	TargetNormalized Target = "normalized"
	TargetOriginal   Target = "original"
)

type rule struct {
	id     string
	target Target
	re     *regexp.Regexp
}

// Verdict is a classifier answer.
type Verdict struct {
	Safe       bool    `json:"safe"`
	Reason     string  `json:"reason,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Classifier judges free text. Implementations must honour ctx.
type Classifier interface {
	Classify(ctx context.Context, text string) (Verdict, error)
}

// Filter is safe for concurrent use.
type Filter struct {
	rules      []rule
	classifier Classifier
	timeout    time.Duration
	policy     Policy
	breaker    *resilience.CircuitBreaker
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New compiles the rules in order. classifier and m may be nil.
func New(cfg config.SafetyConfig, classifier Classifier, m *metrics.Metrics) (*Filter, error) {
	f := &Filter{
		classifier: classifier,
		timeout:    cfg.Classifier.Timeout,
		policy:     Policy(cfg.Classifier.UnavailablePolicy),
		metrics:    m,
		logger:     logger.WithComponent("safety"),
	}
	if f.policy == "" {
		f.policy = PolicyReject
	}
	if f.policy != PolicyReject && f.policy != PolicySkip {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "safety", "unknown unavailable policy %q", f.policy)
	}
	if f.timeout <= 0 {
		f.timeout = 2 * time.Second
	}
	for _, r := range cfg.Rules {
		target := Target(r.Target)
		if target == "" {
			target = TargetNormalized
		}
		pattern := r.Pattern
		if target == TargetOriginal {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "safety", "rule %s: %v", r.ID, err)
		}
		f.rules = append(f.rules, rule{id: r.ID, target: target, re: re})
	}
	if classifier != nil {
		f.breaker = resilience.NewCircuitBreaker("safety-classifier", resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.Classifier.FailureThreshold,
			ResetTimeout:     cfg.Classifier.ResetTimeout,
			OnStateChange: func(name string, to resilience.State) {
				if m != nil {
					m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				}
			},
		})
	}
	return f, nil
}

// MatchRule returns the id of the first rule that matches.
func (f *Filter) MatchRule(original, normalized string) (string, bool) {
	for _, r := range f.rules {
		text := normalized
		if r.target == TargetOriginal {
			text = original
		}
		if r.re.MatchString(text) {
			return r.id, true
		}
	}
	return "", false
}

// Check applies the rules and then the classifier to one candidate. The
// only error returned is cancellation of ctx; every other outcome is
// recorded on the candidate.
func (f *Filter) Check(ctx context.Context, c *slogan.Candidate) error {
	if !c.Alive() {
		return nil
	}
	c.Safety.Checked = true
	if id, ok := f.MatchRule(c.Text, c.Normalized); ok {
		c.Reject(slogan.StageSafety, slogan.SafetyReason(id), "")
		return nil
	}
	if f.classifier == nil {
		return nil
	}

	verdict, err := resilience.Call(f.breaker, func() (Verdict, error) {
		return resilience.TimeoutValue(ctx, f.timeout, "safety-classifier", func(ctx context.Context) (Verdict, error) {
			return f.classifier.Classify(ctx, c.Text)
		})
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.observe("unavailable")
		if f.policy == PolicySkip {
			c.Safety.Caveat = CaveatClassifierSkipped
			f.logger.Warn("classifier unavailable, passing candidate with caveat",
				"candidate_id", c.ID, "error", err)
			return nil
		}
		c.Reject(slogan.StageSafety, slogan.ReasonClassifierUnavailable, err.Error())
		return nil
	}

	c.Safety.Classified = true
	if !verdict.Safe {
		f.observe("unsafe")
		c.Reject(slogan.StageSafety, slogan.ReasonClassifier,
			fmt.Sprintf("%s (confidence %.2f)", verdict.Reason, verdict.Confidence))
		return nil
	}
	f.observe("safe")
	return nil
}

func (f *Filter) observe(outcome string) {
	if f.metrics != nil {
		f.metrics.ClassifierCallsTotal.WithLabelValues(outcome).Inc()
	}
}
