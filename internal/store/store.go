// Package store persists curation runs to PostgreSQL: one row per run, the
// ranked shortlist, and every rejection with its reason. Saving a run id
// that already exists replaces its rows.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/postgres"
)

// Schema creates the run tables.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS curation_runs (
		run_id      TEXT PRIMARY KEY,
		seed        BIGINT NOT NULL,
		k           INTEGER NOT NULL,
		candidates  INTEGER NOT NULL,
		shortlisted INTEGER NOT NULL,
		failures    INTEGER NOT NULL,
		histogram   JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shortlist_items (
		run_id           TEXT NOT NULL REFERENCES curation_runs(run_id) ON DELETE CASCADE,
		rank             INTEGER NOT NULL,
		candidate_id     TEXT NOT NULL,
		text             TEXT NOT NULL,
		brief_id         TEXT NOT NULL DEFAULT '',
		lang             TEXT NOT NULL DEFAULT '',
		total            DOUBLE PRECISION NOT NULL,
		punchiness       DOUBLE PRECISION NOT NULL,
		wit              DOUBLE PRECISION NOT NULL,
		clarity          DOUBLE PRECISION NOT NULL,
		twist            DOUBLE PRECISION NOT NULL,
		nearest_entry_id TEXT NOT NULL DEFAULT '',
		similarity       DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, rank)
	)`,
	`CREATE TABLE IF NOT EXISTS candidate_rejections (
		run_id       TEXT NOT NULL REFERENCES curation_runs(run_id) ON DELETE CASCADE,
		position     INTEGER NOT NULL,
		candidate_id TEXT NOT NULL,
		seq          INTEGER NOT NULL,
		kind         TEXT NOT NULL,
		reason       TEXT NOT NULL,
		stage        TEXT NOT NULL,
		detail       TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS candidate_rejections_reason_idx ON candidate_rejections (run_id, reason)`,
}

// batchSize bounds the rows per multi-row INSERT.
const batchSize = 500

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: logger.WithComponent("run-store"),
	}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.Migrate(ctx, Schema...)
}

// SaveRun writes the run, its shortlist and its rejections in one
// transaction.
func (s *Store) SaveRun(ctx context.Context, res *pipeline.Result) error {
	list := res.Shortlist
	histogram, err := json.Marshal(res.Histogram)
	if err != nil {
		return fmt.Errorf("marshaling histogram: %w", err)
	}

	var rejected []rejectedRow
	for i, c := range res.Candidates {
		if c.Rejection() != nil {
			rejected = append(rejected, rejectedRow{position: i, cand: c})
		}
	}

	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		if err := execBuilder(ctx, tx, psql.Delete("curation_runs").Where(sq.Eq{"run_id": list.RunID})); err != nil {
			return fmt.Errorf("clearing previous run: %w", err)
		}
		run := psql.Insert("curation_runs").
			Columns("run_id", "seed", "k", "candidates", "shortlisted", "failures", "histogram", "created_at").
			Values(list.RunID, list.Seed, list.K, len(res.Candidates), len(list.Items), res.Failures, histogram, list.CreatedAt)
		if err := execBuilder(ctx, tx, run); err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}
		for start := 0; start < len(list.Items); start += batchSize {
			end := min(start+batchSize, len(list.Items))
			if err := execBuilder(ctx, tx, shortlistInsert(list.RunID, list.Items[start:end], start)); err != nil {
				return fmt.Errorf("inserting shortlist: %w", err)
			}
		}
		for start := 0; start < len(rejected); start += batchSize {
			end := min(start+batchSize, len(rejected))
			if err := execBuilder(ctx, tx, rejectionInsert(list.RunID, rejected[start:end])); err != nil {
				return fmt.Errorf("inserting rejections: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("run saved",
		"run_id", list.RunID,
		"shortlisted", len(list.Items),
		"rejections", len(rejected),
	)
	return nil
}

// ShortlistIDs returns the candidate ids of a saved shortlist in rank
// order.
func (s *Store) ShortlistIDs(ctx context.Context, runID string) ([]string, error) {
	query, args, err := psql.Select("candidate_id").
		From("shortlist_items").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("rank").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building shortlist query: %w", err)
	}
	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying shortlist: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning shortlist row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RejectionCounts returns the saved rejection histogram of a run.
func (s *Store) RejectionCounts(ctx context.Context, runID string) (map[string]int, error) {
	query, args, err := psql.Select("reason", "COUNT(*)").
		From("candidate_rejections").
		Where(sq.Eq{"run_id": runID}).
		GroupBy("reason").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building rejection query: %w", err)
	}
	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rejections: %w", err)
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("scanning rejection row: %w", err)
		}
		counts[reason] = n
	}
	return counts, rows.Err()
}

func shortlistInsert(runID string, items []*slogan.Candidate, offset int) sq.InsertBuilder {
	b := psql.Insert("shortlist_items").Columns(
		"run_id", "rank", "candidate_id", "text", "brief_id", "lang",
		"total", "punchiness", "wit", "clarity", "twist", "nearest_entry_id", "similarity",
	)
	for i, c := range items {
		q := c.Quality
		b = b.Values(runID, offset+i+1, c.ID, c.Text, c.BriefID, c.Lang,
			c.Composite, q.Punchiness, q.Wit, q.Clarity, q.Twist, c.Novelty.NearestEntryID, c.Novelty.Similarity)
	}
	return b
}

// rejectedRow is a rejected candidate and its index in the Seq-ordered
// result. Candidate ids and seqs are caller-supplied and may repeat.
type rejectedRow struct {
	position int
	cand     *slogan.Candidate
}

func rejectionInsert(runID string, rows []rejectedRow) sq.InsertBuilder {
	b := psql.Insert("candidate_rejections").
		Columns("run_id", "position", "candidate_id", "seq", "kind", "reason", "stage", "detail")
	for _, row := range rows {
		c := row.cand
		r := c.Rejection()
		b = b.Values(runID, row.position, c.ID, c.Seq, string(r.Kind), r.Reason, r.Stage, r.Detail)
	}
	return b
}

func execBuilder(ctx context.Context, tx *sql.Tx, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("building statement: %w", err)
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}
