package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is a thread-safe in-process embedding cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	vec       []float32
	expiresAt time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns a copy of the cached vector. Expired entries are evicted on read.
func (m *Memory) Get(_ context.Context, fingerprint string) ([]float32, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[fingerprint]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if current, exists := m.entries[fingerprint]; exists && !m.now().Before(current.expiresAt) {
			delete(m.entries, fingerprint)
		}
		m.mu.Unlock()

		return nil, false, nil
	}

	vec := make([]float32, len(entry.vec))
	copy(vec, entry.vec)

	return vec, true, nil
}

// Set stores a copy of vec for ttl. A non-positive ttl is ignored.
func (m *Memory) Set(_ context.Context, fingerprint string, vec []float32, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[fingerprint] = memoryEntry{
		vec:       stored,
		expiresAt: m.now().Add(ttl),
	}

	return nil
}

// DeleteExpired removes all expired entries and returns how many were removed.
func (m *Memory) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64

	now := m.now()

	for key, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, key)

			count++
		}
	}

	return count, nil
}

// Len returns the number of stored entries, including not yet evicted expired ones.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}
