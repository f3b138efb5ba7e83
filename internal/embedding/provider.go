// Package embedding defines the text-to-vector contract used for corpus
// entries and candidates, with an HTTP client for OpenAI-compatible
// endpoints, an offline hashing provider, and a Redis-backed cache.
package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/errors"
)

// Provider turns text into a vector. Implementations must be deterministic
// for a fixed Model().
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// NewFromConfig builds the configured base provider. Caching and the
// on-disk snapshot are layered on by the caller.
func NewFromConfig(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "hash":
		return NewHashProvider(cfg.Dimensions), nil
	case "http", "openai", "ollama":
		if cfg.BaseURL == "" || cfg.Model == "" {
			return nil, apperrors.New(apperrors.ErrInvalidConfig, "embedding", "http provider needs baseUrl and model")
		}
		return NewHTTPClient(HTTPConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Dimensions:  cfg.Dimensions,
			Timeout:     cfg.Timeout,
			MaxAttempts: cfg.MaxAttempts,
		}), nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "embedding", "unknown embedding provider %q", cfg.Provider)
	}
}

// HashProvider embeds text by hashing character trigrams and whole words
// into a fixed number of signed buckets. It needs no network, is fully
// deterministic, and places texts that share spelling close together,
// which makes it suitable for tests and dry runs.
type HashProvider struct {
	dim int
}

func NewHashProvider(dim int) *HashProvider {
	if dim <= 0 {
		dim = 256
	}
	return &HashProvider{dim: dim}
}

func (h *HashProvider) Model() string {
	return fmt.Sprintf("hash-trigram-%d", h.dim)
}

func (h *HashProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, h.dim)
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return vec, nil
	}
	for _, word := range strings.Fields(text) {
		h.add(vec, "w:"+word, 2)
		padded := "^" + word + "$"
		if utf8.RuneCountInString(padded) < 3 {
			continue
		}
		r := []rune(padded)
		for i := 0; i+3 <= len(r); i++ {
			h.add(vec, "t:"+string(r[i:i+3]), 1)
		}
	}
	return Normalize(vec), nil
}

func (h *HashProvider) add(vec []float32, feature string, weight float32) {
	hasher := fnv.New64a()
	hasher.Write([]byte(feature))
	sum := hasher.Sum64()
	idx := int(sum % uint64(h.dim))
	if sum&(1<<63) != 0 {
		vec[idx] -= weight
		return
	}
	vec[idx] += weight
}
