package corpus

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/PuerkitoBio/goquery"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/errors"
)

// Record is a raw corpus line before cleaning.
type Record struct {
	ID   string
	Text string
	Lang string
}

// Source yields raw corpus records.
type Source interface {
	Load(ctx context.Context) ([]Record, error)
}

// NewSource builds the configured source. db is only used by the
// postgres source and may be nil otherwise.
func NewSource(cfg config.CorpusConfig, db *sql.DB) (Source, error) {
	switch cfg.Source {
	case "", "file":
		return &FileSource{Paths: cfg.Paths, DefaultLang: cfg.DefaultLang}, nil
	case "html":
		return &HTMLSource{Paths: cfg.Paths, Selector: cfg.HTMLSelector, DefaultLang: cfg.DefaultLang}, nil
	case "postgres":
		if db == nil {
			return nil, apperrors.New(apperrors.ErrInvalidConfig, "corpus", "postgres corpus source requires postgres.enabled")
		}
		return &PostgresSource{DB: db, Table: cfg.Table, DefaultLang: cfg.DefaultLang}, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "corpus", "unknown corpus source %q", cfg.Source)
	}
}

// FileSource reads line-per-slogan text files. Record ids are
// "<file>:<line>".
type FileSource struct {
	Paths       []string
	DefaultLang string
}

func (s *FileSource) Load(ctx context.Context) ([]Record, error) {
	var records []Record
	for _, path := range s.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrCorpusLoad, "corpus", "opening %s: %v", path, err)
		}
		recs, err := readLines(f, filepath.Base(path), s.DefaultLang)
		f.Close()
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrCorpusLoad, "corpus", "reading %s: %v", path, err)
		}
		records = append(records, recs...)
	}
	return records, nil
}

func readLines(r io.Reader, name, defaultLang string) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		records = append(records, Record{
			ID:   fmt.Sprintf("%s:%d", name, line),
			Text: text,
			Lang: DetectLang(text, defaultLang),
		})
	}
	return records, scanner.Err()
}

// HTMLSource extracts slogans from saved HTML pages or URLs using a CSS
// selector. Record ids are "<file>#<index>".
type HTMLSource struct {
	Paths       []string
	Selector    string
	DefaultLang string
	Client      *http.Client
}

func (s *HTMLSource) Load(ctx context.Context) ([]Record, error) {
	selector := s.Selector
	if selector == "" {
		selector = "li"
	}
	var records []Record
	for _, path := range s.Paths {
		doc, err := s.open(ctx, path)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrCorpusLoad, "corpus", "loading %s: %v", path, err)
		}
		name := filepath.Base(path)
		doc.Find(selector).Each(func(i int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if text == "" {
				return
			}
			records = append(records, Record{
				ID:   fmt.Sprintf("%s#%d", name, i),
				Text: text,
				Lang: DetectLang(text, s.DefaultLang),
			})
		})
	}
	return records, nil
}

func (s *HTMLSource) open(ctx context.Context, path string) (*goquery.Document, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		client := s.Client
		if client == nil {
			client = &http.Client{Timeout: 30 * time.Second}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return goquery.NewDocumentFromReader(resp.Body)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return goquery.NewDocumentFromReader(f)
}

// PostgresSource reads (id, text, lang) rows from a table.
type PostgresSource struct {
	DB          *sql.DB
	Table       string
	DefaultLang string
}

func (s *PostgresSource) Load(ctx context.Context) ([]Record, error) {
	table := s.Table
	if table == "" {
		table = "corpus_slogans"
	}
	query, args, err := sq.Select("id", "text", "COALESCE(lang, '')").
		From(table).
		OrderBy("id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorpusLoad, "corpus", "building corpus query: %v", err)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorpusLoad, "corpus", "querying %s: %v", table, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Text, &r.Lang); err != nil {
			return nil, apperrors.Newf(apperrors.ErrCorpusLoad, "corpus", "scanning row: %v", err)
		}
		if r.Lang == "" {
			r.Lang = DetectLang(r.Text, s.DefaultLang)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Newf(apperrors.ErrCorpusLoad, "corpus", "iterating rows: %v", err)
	}
	return records, nil
}
