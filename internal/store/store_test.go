package store

import (
	"context"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/postgres"
)

func sampleResult() *pipeline.Result {
	keep := slogan.NewCandidate("p2", "Dream bigger today", "en", 1)
	keep.Composite = 0.7
	keep.Quality = slogan.Quality{Punchiness: 0.8, Wit: 0.6, Clarity: 0.9, Twist: 0.4, Total: 0.7}
	dup := slogan.NewCandidate("p1", "Just do it!", "en", 0)
	dup.Reject(slogan.StageExact, slogan.ReasonExactDuplicate, "corpus:c1")
	bad := slogan.NewCandidate("p5", "", "en", 2)
	bad.Fail(slogan.StageNormalize, slogan.ReasonMalformedInput, "empty")

	return &pipeline.Result{
		Candidates: []*slogan.Candidate{dup, keep, bad},
		Histogram:  map[string]int{slogan.ReasonExactDuplicate: 1, slogan.ReasonMalformedInput: 1},
		Failures:   1,
		Shortlist: &slogan.Shortlist{
			RunID:      "store-test-run",
			Seed:       2025,
			K:          10,
			CreatedAt:  time.Now().UTC(),
			Items:      []*slogan.Candidate{keep},
			Rejections: map[string]int{slogan.ReasonExactDuplicate: 1, slogan.ReasonMalformedInput: 1},
		},
	}
}

func TestShortlistInsertRanksFromOffset(t *testing.T) {
	res := sampleResult()
	query, args, err := shortlistInsert("r1", res.Shortlist.Items, 500).ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(query, "INSERT INTO shortlist_items"))
	assert.Contains(t, query, "$13")
	require.Len(t, args, 13)
	assert.Equal(t, "r1", args[0])
	assert.Equal(t, 501, args[1])
	assert.Equal(t, "p2", args[2])
}

func TestRejectionInsert(t *testing.T) {
	res := sampleResult()
	query, args, err := rejectionInsert("r1", []rejectedRow{{position: 0, cand: res.Candidates[0]}}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "candidate_rejections")
	assert.Equal(t, []any{"r1", 0, "p1", 0, "rejected", slogan.ReasonExactDuplicate, slogan.StageExact, "corpus:c1"}, args)
}

func TestRejectionInsertKeepsRepeatedCandidateIDs(t *testing.T) {
	first := slogan.NewCandidate("x", "Dream bigger today", "en", 3)
	first.Reject(slogan.StageSafety, "safety:banned-word", "term")
	second := slogan.NewCandidate("x", "Brew your bright morning", "en", 3)
	second.Fail(slogan.StageNormalize, slogan.ReasonMalformedInput, "duplicate candidate id")

	_, args, err := rejectionInsert("r1", []rejectedRow{
		{position: 4, cand: first},
		{position: 5, cand: second},
	}).ToSql()
	require.NoError(t, err)
	require.Len(t, args, 16)
	assert.Equal(t, []any{"r1", 4, "x", 3}, args[0:4])
	assert.Equal(t, []any{"r1", 5, "x", 3}, args[8:12])
}

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	if os.Getenv("TEST_POSTGRES_HOST") == "" {
		t.Skip("skipping: TEST_POSTGRES_HOST not set")
	}
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	db, err := postgres.New(context.Background(), config.PostgresConfig{
		Host:            os.Getenv("TEST_POSTGRES_HOST"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "slogans_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "slogans"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestSaveRunRoundTrip(t *testing.T) {
	db := skipIfNoPostgres(t)
	s := New(db)
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	res := sampleResult()
	require.NoError(t, s.SaveRun(ctx, res))
	require.NoError(t, s.SaveRun(ctx, res), "saving the same run twice replaces it")

	ids, err := s.ShortlistIDs(ctx, "store-test-run")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, ids)

	counts, err := s.RejectionCounts(ctx, "store-test-run")
	require.NoError(t, err)
	assert.Equal(t, res.Histogram, counts)
}

func TestSaveRunWithRepeatedCandidateIDs(t *testing.T) {
	db := skipIfNoPostgres(t)
	s := New(db)
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	res := sampleResult()
	res.Shortlist.RunID = "store-test-repeated-ids"
	twin := slogan.NewCandidate("p1", "Think different", "en", 3)
	twin.Fail(slogan.StageNormalize, slogan.ReasonMalformedInput, "duplicate candidate id")
	res.Candidates = append(res.Candidates, twin)
	res.Histogram = map[string]int{slogan.ReasonExactDuplicate: 1, slogan.ReasonMalformedInput: 2}

	require.NoError(t, s.SaveRun(ctx, res))

	counts, err := s.RejectionCounts(ctx, res.Shortlist.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.Histogram, counts)
}
