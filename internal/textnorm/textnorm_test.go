package textnorm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		lang string
		want string
	}{
		{"punctuation stripped", "Just Do It.", "en", "just do it"},
		{"exclamation", "Think Different!", "en", "think different"},
		{"whitespace collapsed", "  Test   multiple \t spaces ", "en", "test multiple spaces"},
		{"html entities", "Test&nbsp;text&emsp;here", "en", "test text here"},
		{"guillemets", "«Думай иначе»", "ru", "думай иначе"},
		{"yo folded for ru", "Всё ещё", "ru", "все еще"},
		{"contraction joined", "Don’t stop", "en", "dont stop"},
		{"hyphen splits", "state-of-the-art", "en", "state of the art"},
		{"fullwidth folded by nfkc", "ＡＢＣ", "en", "abc"},
		{"only punctuation", "!!! ...", "en", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in, tt.lang))
		})
	}
}

func TestNormalizeTransliterate(t *testing.T) {
	n := New(Options{Transliterate: true})
	assert.Equal(t, "dumay inache", n.Normalize("Думай иначе", "ru"))
	assert.Equal(t, "cafe creme", n.Normalize("Café Crème", "fr"))
}

func TestNormalizeDoesNotAlterOriginal(t *testing.T) {
	original := "Just Do It."
	_ = Normalize(original, "en")
	assert.Equal(t, "Just Do It.", original)
}

func TestNormalizeDeterministic(t *testing.T) {
	in := "Dream   Bigger — Today!"
	first := Normalize(in, "en")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Normalize(in, "en"))
	}
}

func TestValidate(t *testing.T) {
	n := New(Options{MaxRunes: 10})

	assert.NoError(t, n.Validate("Just do it"))

	err := n.Validate("?!...")
	assert.True(t, errors.Is(err, apperrors.ErrMalformedInput))

	err = n.Validate("this slogan is far too long")
	assert.True(t, errors.Is(err, apperrors.ErrMalformedInput))

	err = n.Validate(string([]byte{0xff, 0xfe, 'a'}))
	assert.True(t, errors.Is(err, apperrors.ErrMalformedInput))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"just", "do", "it"}, Tokens("just do it"))
	assert.Empty(t, Tokens(""))
}
