package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cached memoizes successful embeddings of identical text, so repeated
// retrieval queries do not call the provider again.
type Cached struct {
	next  Embedder
	model string
	cache *expirable.LRU[string, []float32]
}

// NewCached wraps next with an expiring LRU. It returns next unchanged when
// size or ttl is not positive.
func NewCached(next Embedder, model string, size int, ttl time.Duration) Embedder {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &Cached{
		next:  next,
		model: model,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

// Embed returns a cached vector when one exists. Failures are not cached.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, bool) {
	key := cacheKey(c.model, text)
	if cached, ok := c.cache.Get(key); ok {
		slog.Debug("embedding cache hit")
		return cloneEmbedding(cached), true
	}

	vec, ok := c.next.Embed(ctx, text)
	if !ok {
		return nil, false
	}
	c.cache.Add(key, cloneEmbedding(vec))
	return vec, true
}

// Len returns the number of cached vectors.
func (c *Cached) Len() int {
	return c.cache.Len()
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
