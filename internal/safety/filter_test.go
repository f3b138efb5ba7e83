package safety

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/textnorm"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/metrics"
)

func candidate(text, lang string) *slogan.Candidate {
	c := slogan.NewCandidate("c", text, lang, 0)
	c.Normalized = textnorm.Normalize(text, lang)
	return c
}

func defaultConfig() config.SafetyConfig {
	return config.SafetyConfig{
		Rules: config.DefaultSafetyRules(),
		Classifier: config.ClassifierConfig{
			Timeout:           50 * time.Millisecond,
			UnavailablePolicy: "reject",
			FailureThreshold:  2,
			ResetTimeout:      time.Minute,
		},
	}
}

func TestRuleMatching(t *testing.T) {
	f, err := New(defaultConfig(), nil, nil)
	require.NoError(t, err)

	tests := []struct {
		text string
		lang string
		want string
	}{
		{"Guaranteed to shine", "en", "safety:claims-en"},
		{"100% natural", "en", "safety:percent-claim"},
		{"The best a man can get", "en", "safety:superlative-en"},
		{"We're #1 in town", "en", "safety:rank-claim"},
		{"Brand® for you", "en", "safety:trademark"},
		{"Лучший выбор", "ru", "safety:superlative-ru"},
		{"Оставь конкурентов позади", "ru", "safety:competitor-ru"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			c := candidate(tt.text, tt.lang)
			require.NoError(t, f.Check(context.Background(), c))
			rej := c.Rejection()
			require.NotNil(t, rej)
			assert.Equal(t, tt.want, rej.Reason)
			assert.Equal(t, slogan.StageSafety, rej.Stage)
		})
	}

	clean := candidate("Dream bigger today", "en")
	require.NoError(t, f.Check(context.Background(), clean))
	assert.True(t, clean.Alive())
	assert.True(t, clean.Safety.Checked)
}

func TestFirstMatchingRuleWins(t *testing.T) {
	f, err := New(config.SafetyConfig{Rules: []config.SafetyRule{
		{ID: "first", Pattern: `best`},
		{ID: "second", Pattern: `best ever`},
	}}, nil, nil)
	require.NoError(t, err)
	c := candidate("Best ever", "en")
	require.NoError(t, f.Check(context.Background(), c))
	assert.Equal(t, "safety:first", c.Rejection().Reason)
}

func TestInvalidPatternIsConfigError(t *testing.T) {
	_, err := New(config.SafetyConfig{Rules: []config.SafetyRule{{ID: "bad", Pattern: `(`}}}, nil, nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidConfig))
}

type stubClassifier struct {
	verdict Verdict
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (s *stubClassifier) Classify(ctx context.Context, _ string) (Verdict, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Verdict{}, ctx.Err()
		}
	}
	return s.verdict, s.err
}

func TestClassifierUnsafe(t *testing.T) {
	m := metrics.New()
	f, err := New(defaultConfig(), &stubClassifier{verdict: Verdict{Safe: false, Reason: "insult", Confidence: 0.9}}, m)
	require.NoError(t, err)

	c := candidate("Dream bigger today", "en")
	require.NoError(t, f.Check(context.Background(), c))
	assert.Equal(t, slogan.ReasonClassifier, c.Rejection().Reason)
	assert.Contains(t, c.Rejection().Detail, "insult")
	assert.Equal(t, 1.0, metrics.Value(m.ClassifierCallsTotal.WithLabelValues("unsafe")))
}

func TestClassifierTimeoutRejectPolicy(t *testing.T) {
	f, err := New(defaultConfig(), &stubClassifier{verdict: Verdict{Safe: true}, delay: time.Second}, nil)
	require.NoError(t, err)

	c := candidate("Dream bigger today", "en")
	require.NoError(t, f.Check(context.Background(), c))
	require.NotNil(t, c.Rejection())
	assert.Equal(t, slogan.ReasonClassifierUnavailable, c.Rejection().Reason)
}

func TestClassifierUnavailableSkipPolicy(t *testing.T) {
	cfg := defaultConfig()
	cfg.Classifier.UnavailablePolicy = "skip"
	f, err := New(cfg, &stubClassifier{err: errors.New("connection refused")}, nil)
	require.NoError(t, err)

	c := candidate("Dream bigger today", "en")
	require.NoError(t, f.Check(context.Background(), c))
	assert.True(t, c.Alive())
	assert.Equal(t, CaveatClassifierSkipped, c.Safety.Caveat)
	assert.False(t, c.Safety.Classified)
}

func TestCircuitOpensAfterFailures(t *testing.T) {
	m := metrics.New()
	stub := &stubClassifier{err: errors.New("down")}
	f, err := New(defaultConfig(), stub, m)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		c := candidate("Dream bigger today", "en")
		require.NoError(t, f.Check(context.Background(), c))
		assert.Equal(t, slogan.ReasonClassifierUnavailable, c.Rejection().Reason)
	}
	assert.Equal(t, int32(2), stub.calls.Load())
	assert.Equal(t, 1.0, metrics.Value(m.CircuitBreakerState.WithLabelValues("safety-classifier")))
}

func TestCancelledContextIsReturned(t *testing.T) {
	f, err := New(defaultConfig(), &stubClassifier{verdict: Verdict{Safe: true}, delay: time.Second}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := candidate("Dream bigger today", "en")
	assert.ErrorIs(t, f.Check(ctx, c), context.Canceled)
}

func TestHTTPClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(Verdict{Safe: req["text"] != "bad", Reason: "checked"})
	}))
	defer srv.Close()

	h := NewHTTPClassifier(srv.URL, "")
	v, err := h.Classify(context.Background(), "fine")
	require.NoError(t, err)
	assert.True(t, v.Safe)
	v, err = h.Classify(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, v.Safe)
}
