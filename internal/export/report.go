package export

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"time"
)

// WriteReport renders the Markdown quality report: configuration, corpus
// statistics, per-stage funnel, rejection histogram and score averages.
func WriteReport(w io.Writer, run Run) error {
	res := run.Result
	list := res.Shortlist
	b := bufio.NewWriter(w)
	p := func(format string, args ...any) { fmt.Fprintf(b, format, args...) }

	p("# Slogan Curation Report\n\n")
	p("**Generated:** %s\n\n", list.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	p("**Run:** `%s`\n\n", list.RunID)

	p("## Configuration\n\n")
	p("- Target count (K): %d\n", list.K)
	p("- Random seed: %d\n", list.Seed)
	p("- Embedding model: %s\n", run.Settings.EmbeddingModel)
	p("- Fuzzy threshold: %.2f\n", run.Settings.FuzzyThreshold)
	p("- N-gram size: %d (overlap threshold %.2f)\n", run.Settings.NGramSize, run.Settings.NGramThreshold)
	p("- Embedding similarity threshold: %.2f\n", run.Settings.SemanticThreshold)
	p("- Diversity threshold: %.2f\n\n", run.Settings.DiversityThreshold)

	cs := run.Corpus
	p("## Corpus Statistics\n\n")
	p("- Raw lines: %d\n", cs.Raw)
	p("- Entries after cleaning: %d (invalid %d, exact duplicates %d, fuzzy duplicates %d)\n",
		cs.Entries, cs.Invalid, cs.ExactDuplicates, cs.FuzzyDuplicates)
	p("- Words per slogan: min %d, max %d, mean %.1f, median %.1f\n",
		cs.Words.Min, cs.Words.Max, cs.Words.Mean, cs.Words.Median)
	p("- Characters per slogan: min %d, max %d, mean %.1f, median %.1f\n",
		cs.Chars.Min, cs.Chars.Max, cs.Chars.Mean, cs.Chars.Median)
	p("- Unique words: %d\n", cs.UniqueWords)
	if len(cs.MostCommon) > 0 {
		p("- Most common words:")
		for i, wc := range cs.MostCommon {
			if i == 10 {
				break
			}
			p(" %s (%d)", wc.Word, wc.Count)
		}
		p("\n")
	}
	p("\n")

	p("## Pipeline Funnel\n\n")
	p("| Stage | In | Out | Duration |\n|---|---:|---:|---:|\n")
	for _, st := range res.Stages {
		p("| %s | %d | %d | %s |\n", st.Stage, st.Input, st.Survivors, st.Duration.Round(time.Microsecond))
	}
	p("\n**Final output:** %d slogans from %d candidates (%d failures, %d diversity skips)\n\n",
		len(list.Items), len(res.Candidates), res.Failures, len(res.Skipped))

	p("## Rejections\n\n")
	reasons := make([]string, 0, len(res.Histogram))
	for r := range res.Histogram {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool {
		if res.Histogram[reasons[i]] != res.Histogram[reasons[j]] {
			return res.Histogram[reasons[i]] > res.Histogram[reasons[j]]
		}
		return reasons[i] < reasons[j]
	})
	if len(reasons) == 0 {
		p("None.\n")
	}
	for _, r := range reasons {
		p("- `%s`: %d\n", r, res.Histogram[r])
	}
	p("\n")

	s := Summarize(list.Items)
	p("## Quality Metrics\n\n")
	p("- Average total score: %.3f\n", s.AvgScore)
	p("- Average punchiness / wit / clarity / twist: %.2f / %.2f / %.2f / %.2f\n",
		s.AvgPunchiness, s.AvgWit, s.AvgClarity, s.AvgTwist)
	p("- Average word count: %.1f\n", s.AvgWordCount)

	return b.Flush()
}
