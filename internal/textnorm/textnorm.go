// Package textnorm canonicalises slogan text for comparison. It decodes HTML
// entities, applies NFKC, lower-cases, folds quotes and punctuation away,
// and collapses whitespace. The original text is never modified; callers
// keep both forms.
package textnorm

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	apperrors "github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/errors"
)

// Options controls optional per-language folding.
type Options struct {
	// Transliterate maps Cyrillic to Latin and strips diacritics so that
	// "café" and "cafe" or "мир" and "mir" compare equal.
	Transliterate bool
	// MaxRunes bounds the accepted raw length; zero disables the bound.
	MaxRunes int
}

// Normalizer is safe for concurrent use.
type Normalizer struct {
	opts Options
}

func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts}
}

var defaultNormalizer = New(Options{})

// Normalize canonicalises text with default options.
func Normalize(text string, lang string) string {
	return defaultNormalizer.Normalize(text, lang)
}

// Normalize returns the comparison form of text.
func (n *Normalizer) Normalize(text string, lang string) string {
	text = html.UnescapeString(text)
	text = norm.NFKC.String(text)
	text = strings.ToLower(text)
	if lang == "ru" {
		text = strings.ReplaceAll(text, "ё", "е")
	}
	if n.opts.Transliterate {
		text = transliterate(text)
		text = stripDiacritics(text)
	}

	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		switch {
		case isApostrophe(r):
			// joins contractions: "don't" -> "dont"
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.M, r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		default:
			pendingSpace = true
		}
	}
	return b.String()
}

// Validate reports malformed raw input before normalisation.
func (n *Normalizer) Validate(text string) error {
	if !utf8.ValidString(text) {
		return apperrors.New(apperrors.ErrMalformedInput, "normalize", "text is not valid UTF-8")
	}
	if n.opts.MaxRunes > 0 {
		if count := utf8.RuneCountInString(text); count > n.opts.MaxRunes {
			return apperrors.Newf(apperrors.ErrMalformedInput, "normalize",
				"text has %d runes, limit is %d", count, n.opts.MaxRunes)
		}
	}
	if n.Normalize(text, "") == "" {
		return apperrors.New(apperrors.ErrMalformedInput, "normalize", "text is empty after normalization")
	}
	return nil
}

// Tokens splits normalized text into words.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// SplitHalves splits tokens into a head and tail phrase at the midpoint,
// giving the extra word to the head. ok is false for fewer than two tokens.
func SplitHalves(tokens []string) (head, tail string, ok bool) {
	if len(tokens) < 2 {
		return "", "", false
	}
	mid := (len(tokens) + 1) / 2
	return strings.Join(tokens[:mid], " "), strings.Join(tokens[mid:], " "), true
}

// WordCount counts words in raw or normalized text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

func isApostrophe(r rune) bool {
	switch r {
	case '\'', '’', 'ʼ', '`':
		return true
	}
	return false
}

func stripDiacritics(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ж': "zh",
	'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f",
	'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch", 'ъ': "",
	'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya", 'і': "i", 'ї': "yi",
	'є': "ye", 'ґ': "g",
}

func transliterate(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if latin, ok := cyrillicToLatin[r]; ok {
			b.WriteString(latin)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
