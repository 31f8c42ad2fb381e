package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of (task_type, text) embeddings kept in memory.
const DefaultCacheSize = 4096

// CachedEmbedder wraps an Embedder with a bounded LRU cache keyed by (task_type, text), so that
// re-embedding identical signature text within a run is a cache hit. The cache never changes
// correctness: a miss always falls through to the wrapped embedder.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps inner with an LRU cache of the given size (DefaultCacheSize if ≤ 0).
func NewCachedEmbedder(inner Embedder, cacheSize int) *CachedEmbedder {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)
	return &CachedEmbedder{inner: inner, cache: cache}
}

func (c *CachedEmbedder) cacheKey(taskType, text string) string {
	combined := taskType + "\x00" + text + "\x00" + c.inner.ModelName()
	hash := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(hash[:])
}

// Dimension passes through to the wrapped embedder.
func (c *CachedEmbedder) Dimension() int { return c.inner.Dimension() }

// ModelName passes through to the wrapped embedder.
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

// Warmup passes through to the wrapped embedder; cached entries are left in place.
func (c *CachedEmbedder) Warmup(ctx context.Context) error {
	return c.inner.Warmup(ctx)
}

// Close closes the wrapped embedder and discards the cache.
func (c *CachedEmbedder) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}

// EncodeOne returns the cached vector if present, otherwise computes and caches it.
func (c *CachedEmbedder) EncodeOne(ctx context.Context, text, taskType string) ([]float32, error) {
	key := c.cacheKey(taskType, text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}
	vec, err := c.inner.EncodeOne(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// EncodeBatch resolves cache hits first, then batches only the misses through the wrapped
// embedder, preserving input order in the result.
func (c *CachedEmbedder) EncodeBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if vec, ok := c.cache.Get(c.cacheKey(taskType, text)); ok {
			results[i] = vec
		} else {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
		}
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	fresh, err := c.inner.EncodeBatch(ctx, missTexts, taskType)
	if err != nil {
		return nil, err
	}

	for j, idx := range missIdx {
		results[idx] = fresh[j]
		c.cache.Add(c.cacheKey(taskType, texts[idx]), fresh[j])
	}

	return results, nil
}

// Inner returns the wrapped embedder.
func (c *CachedEmbedder) Inner() Embedder { return c.inner }
