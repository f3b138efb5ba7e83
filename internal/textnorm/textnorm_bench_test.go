package textnorm

import (
	"fmt"
	"strings"
	"testing"
)

var sampleTexts = map[string]string{
	"short":  "Just Do It.",
	"medium": "Have a break, have a KitKat. Because you're worth it, every single day!",
	"ru":     "Не тормози, сникерсни! Думай о главном.",
	"long":   strings.Repeat("Brew your bright morning with café crème and a smile. ", 5),
}

func BenchmarkNormalize(b *testing.B) {
	n := New(Options{MaxRunes: 280})
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = n.Normalize(text, "en")
			}
		})
	}
}

func BenchmarkNormalizeTransliterate(b *testing.B) {
	n := New(Options{Transliterate: true})
	text := sampleTexts["ru"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = n.Normalize(text, "ru")
		}
	})
}

func BenchmarkTokensVaryingSize(b *testing.B) {
	base := "think different every day "
	for _, size := range []int{10, 50, 100, 280} {
		text := strings.Repeat(base, size/len(base)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = Tokens(text)
			}
		})
	}
}
