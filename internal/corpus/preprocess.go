package corpus

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	numberingRe  = regexp.MustCompile(`^\s*\d+[.)]\s*`)
	numberOnlyRe = regexp.MustCompile(`^\d+\.?\s*$`)
	entityRe     = regexp.MustCompile(`&(?:[a-zA-Z]+|#\d+);`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// fieldSeparators split a corpus line from trailing metadata such as the
// brand name. Only the first match applies.
var fieldSeparators = []string{"&emsp;", "\u2003", "  ", "\t"}

// metadataPrefixes mark header and summary lines in exported corpora.
var metadataPrefixes = []string{
	"бренд:", "brand:", "слоган:", "slogan:",
	"дата", "date:", "всего", "total:", "===", "[база", "[slogans",
}

var quoteReplacer = strings.NewReplacer(
	"«", `"`, "»", `"`, "“", `"`, "”", `"`, "„", `"`,
	"‘", "'", "’", "'",
)

// ExtractSlogan strips leading numbering and trailing metadata from a raw
// corpus line and returns the display text.
func ExtractSlogan(line string) string {
	line = numberingRe.ReplaceAllString(line, "")
	for _, sep := range fieldSeparators {
		if i := strings.Index(line, sep); i >= 0 {
			line = line[:i]
			break
		}
	}
	return CleanText(line)
}

// CleanText replaces HTML entities with spaces, unifies quote marks and
// collapses whitespace. Case and punctuation are kept.
func CleanText(text string) string {
	text = entityRe.ReplaceAllString(text, " ")
	text = quoteReplacer.Replace(text)
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// IsValid rejects lines that are too short, look like metadata, are bare
// numbers, or contain no letters.
func IsValid(text string, minLength int) bool {
	if text == "" || utf8.RuneCountInString(text) < minLength {
		return false
	}
	lower := strings.ToLower(text)
	for _, marker := range metadataPrefixes {
		if strings.HasPrefix(lower, marker) {
			return false
		}
	}
	if numberOnlyRe.MatchString(text) {
		return false
	}
	return strings.IndexFunc(text, unicode.IsLetter) >= 0
}

// DetectLang returns "ru" when most letters are Cyrillic, otherwise
// fallback.
func DetectLang(text, fallback string) string {
	var cyrillic, letters int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Cyrillic, r) {
			cyrillic++
		}
	}
	if letters > 0 && cyrillic*2 > letters {
		return "ru"
	}
	return fallback
}
