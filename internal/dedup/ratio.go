package dedup

import "math"

// Ratio is the normalised Indel similarity of a and b over runes:
// 2*LCS(a, b) / (len(a) + len(b)). Two empty strings are identical.
func Ratio(a, b string) float64 {
	return ratioRunes([]rune(a), []rune(b))
}

func ratioRunes(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(lcsLength(a, b)) / float64(total)
}

// lcsLength computes the longest common subsequence length with two rows.
func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// lengthWindow returns the inclusive range of rune lengths that can reach
// threshold against a string of length n. Ratio is bounded above by
// 2*min(n, m)/(n+m), so lengths outside the window can never match.
func lengthWindow(n int, threshold float64) (lo, hi int) {
	if threshold <= 0 {
		return 0, math.MaxInt
	}
	const eps = 1e-9
	lo = int(math.Ceil(threshold*float64(n)/(2-threshold) - eps))
	hi = int(math.Floor(float64(n)*(2-threshold)/threshold + eps))
	if lo < 0 {
		lo = 0
	}
	return lo, hi
}

// histogram counts runes; its overlap with another histogram bounds LCS.
type histogram map[rune]int

func newHistogram(r []rune) histogram {
	h := make(histogram, len(r))
	for _, c := range r {
		h[c]++
	}
	return h
}

// overlap is the multiset intersection size, an upper bound on LCS.
func (h histogram) overlap(other histogram) int {
	small, large := h, other
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for r, c := range small {
		if oc, ok := large[r]; ok {
			n += min(c, oc)
		}
	}
	return n
}
