// Package export writes a finished run to disk as JSON, JSONL, CSV, plain
// text and a Markdown quality report.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/textnorm"
	apperrors "github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/logger"
)

// Record is the exported form of one shortlisted slogan.
type Record struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Lang       string   `json:"lang"`
	BriefID    string   `json:"brief_id,omitempty"`
	LenWords   int      `json:"len_words"`
	Novelty    Novelty  `json:"novelty"`
	Style      Style    `json:"style"`
	Flags      []string `json:"flags"`
	TotalScore float64  `json:"total_score"`
}

type Novelty struct {
	NearestEntryID string  `json:"nearest_entry_id,omitempty"`
	EmbedSimToNN   float64 `json:"embed_sim_to_nn"`
	NGramOverlap   float64 `json:"ngram_overlap"`
	FuzzyRatio     float64 `json:"fuzzy_ratio"`
}

type Style struct {
	Punchiness float64 `json:"punchiness"`
	Wit        float64 `json:"wit"`
	Clarity    float64 `json:"clarity"`
	Twist      float64 `json:"twist"`
}

// Metadata heads the JSON export.
type Metadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	RunID       string    `json:"run_id"`
	Seed        int64     `json:"seed"`
	K           int       `json:"k"`
	TotalCount  int       `json:"total_count"`
	Candidates  int       `json:"candidates"`
	CorpusSize  int       `json:"corpus_size"`
}

// Statistics are shortlist averages.
type Statistics struct {
	AvgScore      float64 `json:"avg_score"`
	AvgPunchiness float64 `json:"avg_punchiness"`
	AvgWit        float64 `json:"avg_wit"`
	AvgClarity    float64 `json:"avg_clarity"`
	AvgTwist      float64 `json:"avg_twist"`
	AvgLength     float64 `json:"avg_length"`
	AvgWordCount  float64 `json:"avg_word_count"`
}

// Document is the JSON export layout.
type Document struct {
	Metadata   Metadata   `json:"metadata"`
	Statistics Statistics `json:"statistics"`
	Slogans    []Record   `json:"slogans"`
}

// Settings are the thresholds echoed in the report.
type Settings struct {
	FuzzyThreshold     float64
	NGramSize          int
	NGramThreshold     float64
	SemanticThreshold  float64
	DiversityThreshold float64
	EmbeddingModel     string
}

// Run bundles what the exporters read.
type Run struct {
	Result   *pipeline.Result
	Corpus   corpus.Stats
	Settings Settings
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Records converts the shortlist in rank order.
func Records(items []*slogan.Candidate) []Record {
	out := make([]Record, len(items))
	for i, c := range items {
		flags := []string{}
		if c.Safety.Caveat != "" {
			flags = append(flags, c.Safety.Caveat)
		}
		out[i] = Record{
			ID:       c.ID,
			Text:     c.Text,
			Lang:     c.Lang,
			BriefID:  c.BriefID,
			LenWords: textnorm.WordCount(c.Text),
			Novelty: Novelty{
				NearestEntryID: c.Novelty.NearestEntryID,
				EmbedSimToNN:   round(c.Novelty.Similarity, 3),
				NGramOverlap:   round(c.Novelty.NGramOverlap, 3),
				FuzzyRatio:     round(c.Novelty.FuzzyRatio, 3),
			},
			Style: Style{
				Punchiness: round(c.Quality.Punchiness, 2),
				Wit:        round(c.Quality.Wit, 2),
				Clarity:    round(c.Quality.Clarity, 2),
				Twist:      round(c.Quality.Twist, 2),
			},
			Flags:      flags,
			TotalScore: round(c.Composite, 3),
		}
	}
	return out
}

// Summarize averages the shortlist scores.
func Summarize(items []*slogan.Candidate) Statistics {
	var s Statistics
	if len(items) == 0 {
		return s
	}
	for _, c := range items {
		s.AvgScore += c.Composite
		s.AvgPunchiness += c.Quality.Punchiness
		s.AvgWit += c.Quality.Wit
		s.AvgClarity += c.Quality.Clarity
		s.AvgTwist += c.Quality.Twist
		s.AvgLength += float64(len([]rune(c.Text)))
		s.AvgWordCount += float64(textnorm.WordCount(c.Text))
	}
	n := float64(len(items))
	s.AvgScore /= n
	s.AvgPunchiness /= n
	s.AvgWit /= n
	s.AvgClarity /= n
	s.AvgTwist /= n
	s.AvgLength /= n
	s.AvgWordCount /= n
	return s
}

func WriteJSON(w io.Writer, run Run) error {
	list := run.Result.Shortlist
	doc := Document{
		Metadata: Metadata{
			GeneratedAt: list.CreatedAt,
			RunID:       list.RunID,
			Seed:        list.Seed,
			K:           list.K,
			TotalCount:  len(list.Items),
			Candidates:  len(run.Result.Candidates),
			CorpusSize:  run.Corpus.Entries,
		},
		Statistics: Summarize(list.Items),
		Slogans:    Records(list.Items),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

func WriteJSONL(w io.Writer, run Run) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range Records(run.Result.Shortlist.Items) {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

var csvHeader = []string{
	"id", "text", "lang", "len_words", "embed_sim", "punchiness", "wit", "clarity", "twist", "total_score",
}

func WriteCSV(w io.Writer, run Run) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, r := range Records(run.Result.Shortlist.Items) {
		row := []string{
			r.ID, r.Text, r.Lang, strconv.Itoa(r.LenWords), ff(r.Novelty.EmbedSimToNN),
			ff(r.Style.Punchiness), ff(r.Style.Wit), ff(r.Style.Clarity), ff(r.Style.Twist), ff(r.TotalScore),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteTXT(w io.Writer, run Run) error {
	for _, c := range run.Result.Shortlist.Items {
		if _, err := fmt.Fprintln(w, c.Text); err != nil {
			return err
		}
	}
	return nil
}

type writer struct {
	file string
	dir  func(*Exporter) string
	fn   func(io.Writer, Run) error
}

var writers = map[string]writer{
	"json":   {"shortlist.json", (*Exporter).outDir, WriteJSON},
	"jsonl":  {"shortlist.jsonl", (*Exporter).outDir, WriteJSONL},
	"csv":    {"shortlist.csv", (*Exporter).outDir, WriteCSV},
	"txt":    {"shortlist.txt", (*Exporter).outDir, WriteTXT},
	"report": {"quality_report.md", (*Exporter).reportDir, WriteReport},
}

// Exporter writes the configured formats into Dir and the report into
// ReportDir.
type Exporter struct {
	Dir       string
	ReportDir string
	Formats   []string
	logger    *slog.Logger
}

func New(dir, reportDir string, formats []string) (*Exporter, error) {
	for _, f := range formats {
		if _, ok := writers[f]; !ok {
			return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "export", "unknown output format %q", f)
		}
	}
	return &Exporter{
		Dir:       dir,
		ReportDir: reportDir,
		Formats:   formats,
		logger:    logger.WithComponent("export"),
	}, nil
}

func (e *Exporter) outDir() string { return e.Dir }

func (e *Exporter) reportDir() string {
	if e.ReportDir == "" {
		return e.Dir
	}
	return e.ReportDir
}

// Export writes every configured format and returns the file paths.
func (e *Exporter) Export(run Run) ([]string, error) {
	var paths []string
	for _, format := range e.Formats {
		wr := writers[format]
		dir := wr.dir(e)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return paths, fmt.Errorf("creating %s: %w", dir, err)
		}
		path := filepath.Join(dir, wr.file)
		if err := writeFile(path, run, wr.fn); err != nil {
			return paths, fmt.Errorf("writing %s: %w", path, err)
		}
		e.logger.Info("export written", "format", format, "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, run Run, fn func(io.Writer, Run) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f, run); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
