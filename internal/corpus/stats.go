package corpus

import (
	"sort"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/internal/slogan"
)

// Distribution summarises an integer measure across entries.
type Distribution struct {
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// WordCount pairs a word with its total occurrences.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Stats describes the corpus after preprocessing.
type Stats struct {
	Raw             int            `json:"raw"`
	Invalid         int            `json:"invalid"`
	ExactDuplicates int            `json:"exact_duplicates"`
	FuzzyDuplicates int            `json:"fuzzy_duplicates"`
	Entries         int            `json:"entries"`
	Words           Distribution   `json:"word_count"`
	Chars           Distribution   `json:"char_count"`
	UniqueWords     int            `json:"unique_words"`
	MostCommon      []WordCount    `json:"most_common_words"`
	Languages       map[string]int `json:"languages"`
}

const mostCommonLimit = 20

func (s *Stats) compute(entries []*slogan.CorpusEntry) {
	s.Entries = len(entries)
	s.Languages = make(map[string]int)
	if len(entries) == 0 {
		return
	}
	words := make([]int, len(entries))
	chars := make([]int, len(entries))
	freq := make(map[string]int)
	for i, e := range entries {
		words[i] = len(e.Tokens)
		chars[i] = utf8.RuneCountInString(e.Text)
		for _, tok := range e.Tokens {
			freq[tok]++
		}
		s.Languages[e.Lang]++
	}
	s.Words = distribution(words)
	s.Chars = distribution(chars)
	s.UniqueWords = len(freq)

	common := make([]WordCount, 0, len(freq))
	for w, n := range freq {
		common = append(common, WordCount{Word: w, Count: n})
	}
	sort.Slice(common, func(i, j int) bool {
		if common[i].Count != common[j].Count {
			return common[i].Count > common[j].Count
		}
		return common[i].Word < common[j].Word
	})
	if len(common) > mostCommonLimit {
		common = common[:mostCommonLimit]
	}
	s.MostCommon = common
}

func distribution(values []int) Distribution {
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	sum := 0
	for _, v := range sorted {
		sum += v
	}
	n := len(sorted)
	median := float64(sorted[n/2])
	if n%2 == 0 {
		median = float64(sorted[n/2-1]+sorted[n/2]) / 2
	}
	return Distribution{
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   float64(sum) / float64(n),
		Median: median,
	}
}
