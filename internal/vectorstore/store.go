// Package vectorstore persists corpus embeddings in a local SQLite file so
// repeated runs over the same corpus and model skip re-embedding.
package vectorstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS corpus_vectors (
    model      TEXT NOT NULL,
    text_hash  TEXT NOT NULL,
    dim        INTEGER NOT NULL,
    vector     BLOB NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (model, text_hash)
);
`

// Store is a SQLite-backed map from (model, text) to vector.
type Store struct {
	conn *sql.DB
}

// Open creates the file and schema if needed. path may be ":memory:".
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating vector store directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}
	// a single connection keeps :memory: databases shared and serialises writes
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating vector store: %w", err)
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func textHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get returns the stored vector for text under model.
func (s *Store) Get(ctx context.Context, model, text string) ([]float32, bool, error) {
	var blob []byte
	err := s.conn.QueryRowContext(ctx,
		`SELECT vector FROM corpus_vectors WHERE model = ? AND text_hash = ?`,
		model, textHash(text)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading vector: %w", err)
	}
	return embedding.DecodeVector(blob), true, nil
}

// Put stores or replaces the vector for text under model.
func (s *Store) Put(ctx context.Context, model, text string, vector []float32) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO corpus_vectors (model, text_hash, dim, vector) VALUES (?, ?, ?, ?)`,
		model, textHash(text), len(vector), embedding.EncodeVector(vector))
	if err != nil {
		return fmt.Errorf("writing vector: %w", err)
	}
	return nil
}

// Count returns how many vectors are stored for model.
func (s *Store) Count(ctx context.Context, model string) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM corpus_vectors WHERE model = ?`, model).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

// Provider serves embeddings from the store and falls back to next,
// writing every computed vector back.
type Provider struct {
	store  *Store
	next   embedding.Provider
	logger *slog.Logger
}

func NewProvider(store *Store, next embedding.Provider) *Provider {
	return &Provider{
		store:  store,
		next:   next,
		logger: logger.WithComponent("vectorstore").With("model", next.Model()),
	}
}

func (p *Provider) Model() string {
	return p.next.Model()
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	v, found, err := p.store.Get(ctx, p.next.Model(), text)
	if err != nil {
		p.logger.Warn("vector store read failed", "error", err)
	}
	if found {
		return v, nil
	}
	v, err = p.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := p.store.Put(ctx, p.next.Model(), text, v); err != nil {
		p.logger.Warn("vector store write failed", "error", err)
	}
	return v, nil
}
