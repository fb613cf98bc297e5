package mocks

import (
	"context"
	"sync"
	"time"
)

// EmbeddingCache is a thread-safe in-memory implementation of ports.EmbeddingCache.
type EmbeddingCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	gets int
	sets int

	// GetFn allows overriding Get behavior.
	GetFn func(ctx context.Context, fingerprint string) ([]float32, bool, error)

	// SetFn allows overriding Set behavior.
	SetFn func(ctx context.Context, fingerprint string, vec []float32, ttl time.Duration) error

	// DeleteExpiredFn allows overriding DeleteExpired behavior.
	DeleteExpiredFn func(ctx context.Context) (int64, error)
}

type cacheEntry struct {
	vec       []float32
	expiresAt time.Time
}

// NewEmbeddingCache creates a new mock embedding cache.
func NewEmbeddingCache() *EmbeddingCache {
	return &EmbeddingCache{
		entries: make(map[string]cacheEntry),
	}
}

// Get retrieves a cached vector.
func (c *EmbeddingCache) Get(ctx context.Context, fingerprint string) ([]float32, bool, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()

	if c.GetFn != nil {
		return c.GetFn(ctx, fingerprint)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[fingerprint]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}

	return entry.vec, true, nil
}

// Set stores a vector in cache.
func (c *EmbeddingCache) Set(ctx context.Context, fingerprint string, vec []float32, ttl time.Duration) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()

	if c.SetFn != nil {
		return c.SetFn(ctx, fingerprint, vec, ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[fingerprint] = cacheEntry{
		vec:       vec,
		expiresAt: time.Now().Add(ttl),
	}

	return nil
}

// DeleteExpired removes expired entries.
func (c *EmbeddingCache) DeleteExpired(ctx context.Context) (int64, error) {
	if c.DeleteExpiredFn != nil {
		return c.DeleteExpiredFn(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var count int64

	now := time.Now()

	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)

			count++
		}
	}

	return count, nil
}

// Len returns the number of stored entries, including expired ones.
func (c *EmbeddingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Gets returns how many times Get was called.
func (c *EmbeddingCache) Gets() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.gets
}

// Sets returns how many times Set was called.
func (c *EmbeddingCache) Sets() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.sets
}

// Clear removes all cached entries and counters.
func (c *EmbeddingCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
	c.gets = 0
	c.sets = 0
}
