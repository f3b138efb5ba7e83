package dedup

import (
	"fmt"
	"testing"
)

func BenchmarkRatio(b *testing.B) {
	pairs := []struct {
		name string
		a, b string
	}{
		{"identical", "just do it", "just do it"},
		{"close", "because you're worth it", "because you are worth it"},
		{"far", "think different", "have a break have a kitkat"},
	}
	for _, p := range pairs {
		b.Run(p.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = Ratio(p.a, p.b)
			}
		})
	}
}

// BenchmarkFuzzyIndexBest measures a best-match lookup against corpora of
// growing size.
func BenchmarkFuzzyIndexBest(b *testing.B) {
	for _, size := range []int{1000, 10000} {
		ix := NewFuzzyIndex(0.9)
		for i := 0; i < size; i++ {
			ix.Add(fmt.Sprintf("c%d", i), fmt.Sprintf("slogan number %d for the brand", i))
		}
		b.Run(fmt.Sprintf("entries_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = ix.Best("slogan number 4242 for a brand")
			}
		})
	}
}
