package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"ragpipe/internal/port"
)

// EmbedCache is an LRU cache with TTL for embedding vectors, keyed by
// input text. Embedders are deterministic for identical input, so a
// cache hit can never change a pipeline result.
type EmbedCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	vector    []float32
	timestamp time.Time
}

func NewEmbedCache(maxSize int, ttl time.Duration) *EmbedCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &EmbedCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:16])
}

func (c *EmbedCache) Get(text string) ([]float32, bool) {
	key := cacheKey(text)

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if time.Since(entry.timestamp) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.moveToEnd(key)
	c.mu.Unlock()

	return entry.vector, true
}

func (c *EmbedCache) Put(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(text)

	if _, exists := c.entries[key]; exists {
		c.entries[key] = &cacheEntry{vector: vector, timestamp: time.Now()}
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &cacheEntry{vector: vector, timestamp: time.Now()}
	c.order = append(c.order, key)
}

func (c *EmbedCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *EmbedCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *EmbedCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *EmbedCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// CachedEmbedder wraps an Embedder with an EmbedCache. Only texts
// missing from the cache are forwarded to the underlying embedder.
type CachedEmbedder struct {
	embedder port.Embedder
	cache    *EmbedCache
}

func NewCachedEmbedder(embedder port.Embedder, cache *EmbedCache) *CachedEmbedder {
	return &CachedEmbedder{
		embedder: embedder,
		cache:    cache,
	}
}

func (e *CachedEmbedder) Embed(texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if vec, hit := e.cache.Get(text); hit {
			results[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return results, nil
	}

	embedded, err := e.embedder.Embed(missing)
	if err != nil {
		return nil, err
	}
	if len(embedded) != len(missing) {
		return nil, &mismatchError{want: len(missing), got: len(embedded)}
	}

	for j, vec := range embedded {
		results[missingIdx[j]] = vec
		e.cache.Put(missing[j], vec)
	}

	return results, nil
}

func (e *CachedEmbedder) Dimension() int {
	return e.embedder.Dimension()
}

func (e *CachedEmbedder) ModelName() string {
	return e.embedder.ModelName()
}

type mismatchError struct {
	want, got int
}

func (e *mismatchError) Error() string {
	return "embedder returned wrong result count"
}
