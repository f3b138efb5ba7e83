package dedup

import "sort"

type fuzzyItem struct {
	id    string
	runes []rune
	hist  histogram
}

// Match is the strongest fuzzy hit for a query.
type Match struct {
	ID    string
	Ratio float64
}

// FuzzyIndex finds the best Indel ratio match among indexed strings. Items
// are bucketed by rune length and pruned by a character histogram bound
// before the exact LCS is computed, so no pair that could reach the
// threshold is ever skipped. Reads are safe for concurrent use once all
// Adds have finished.
type FuzzyIndex struct {
	threshold float64
	buckets   map[int][]fuzzyItem
	lengths   []int
}

func NewFuzzyIndex(threshold float64) *FuzzyIndex {
	return &FuzzyIndex{
		threshold: threshold,
		buckets:   make(map[int][]fuzzyItem),
	}
}

// Add indexes text under id.
func (ix *FuzzyIndex) Add(id, text string) {
	r := []rune(text)
	n := len(r)
	if _, ok := ix.buckets[n]; !ok {
		i := sort.SearchInts(ix.lengths, n)
		ix.lengths = append(ix.lengths, 0)
		copy(ix.lengths[i+1:], ix.lengths[i:])
		ix.lengths[i] = n
	}
	ix.buckets[n] = append(ix.buckets[n], fuzzyItem{id: id, runes: r, hist: newHistogram(r)})
}

func (ix *FuzzyIndex) Len() int {
	total := 0
	for _, items := range ix.buckets {
		total += len(items)
	}
	return total
}

// Best returns the highest-ratio item at or above the threshold. Ties go to
// the smaller id. ok is false when nothing reaches the threshold.
func (ix *FuzzyIndex) Best(text string) (Match, bool) {
	q := []rune(text)
	qh := newHistogram(q)
	lo, hi := lengthWindow(len(q), ix.threshold)

	var best Match
	found := false
	start := sort.SearchInts(ix.lengths, lo)
	for _, n := range ix.lengths[start:] {
		if n > hi {
			break
		}
		total := float64(len(q) + n)
		for _, item := range ix.buckets[n] {
			if total > 0 && 2*float64(qh.overlap(item.hist))/total < ix.threshold {
				continue
			}
			r := ratioRunes(q, item.runes)
			if r < ix.threshold {
				continue
			}
			if !found || r > best.Ratio || (r == best.Ratio && item.id < best.ID) {
				best = Match{ID: item.id, Ratio: r}
				found = true
			}
		}
	}
	return best, found
}
