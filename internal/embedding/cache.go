package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Slogan-Curation-Pipeline/pkg/metrics"
)

const keyPrefix = "emb:"

// ByteCache is the subset of the Redis client the cache needs.
type ByteCache interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, value []byte) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// CachedProvider memoises another Provider in Redis. Keys include the model
// name so switching models never serves stale vectors. Concurrent requests
// for the same text share one upstream call. Cache errors are logged and
// fall through to the upstream provider.
type CachedProvider struct {
	next    Provider
	cache   ByteCache
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewCachedProvider wraps next. m may be nil.
func NewCachedProvider(next Provider, cache ByteCache, m *metrics.Metrics) *CachedProvider {
	return &CachedProvider{
		next:    next,
		cache:   cache,
		metrics: m,
		logger:  logger.WithComponent("embedding-cache").With("model", next.Model()),
	}
}

func (c *CachedProvider) Model() string {
	return c.next.Model()
}

func (c *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.buildKey(text)
	if v, ok := c.get(ctx, key); ok {
		return v, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if v, ok := c.get(ctx, key); ok {
			return v, nil
		}
		v, err := c.next.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		if err := c.cache.SetBytes(ctx, key, EncodeVector(v)); err != nil {
			c.logger.Warn("cache set failed", "key", key, "error", err)
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]float32), nil
}

func (c *CachedProvider) get(ctx context.Context, key string) ([]float32, bool) {
	data, found, err := c.cache.GetBytes(ctx, key)
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
	}
	if err != nil || !found || len(data) == 0 {
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	return DecodeVector(data), true
}

// Purge removes every cached vector for the current model.
func (c *CachedProvider) Purge(ctx context.Context) (int64, error) {
	deleted, err := c.cache.FlushByPattern(ctx, keyPrefix+c.next.Model()+":*")
	if err != nil {
		return deleted, fmt.Errorf("purging embedding cache: %w", err)
	}
	c.logger.Info("embedding cache purged", "keys_deleted", deleted)
	return deleted, nil
}

func (c *CachedProvider) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *CachedProvider) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.EmbeddingCacheHits.Inc()
	}
}

func (c *CachedProvider) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.EmbeddingCacheMisses.Inc()
	}
}

func (c *CachedProvider) buildKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s%s:%x", keyPrefix, c.next.Model(), hash[:16])
}
