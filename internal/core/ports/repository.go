// Package ports provides domain-centric interfaces for external dependencies.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern,
// allowing the duplicate detector to remain independent of infrastructure concerns.
package ports

import (
	"context"
	"time"

	"github.com/lueurxax/news-dedup/internal/core/domain"
)

// CandidateStore returns recently stored news items for comparison.
type CandidateStore interface {
	// FetchCandidates returns items created after since, newest first, capped at limit.
	// When onlyRelevant is true, items must also pass the store's relevance gate.
	FetchCandidates(ctx context.Context, since time.Time, onlyRelevant bool, limit int) ([]domain.Candidate, error)
}

// SourceMerger attaches additional origin references to stored items.
type SourceMerger interface {
	// MergeSource links sourceID to itemID. Calling it again with the same pair
	// is a successful no-op.
	MergeSource(ctx context.Context, itemID, sourceID, sourceURL string) (bool, error)
}

// ItemCreator stores new news items.
type ItemCreator interface {
	CreateItem(ctx context.Context, item domain.NewItem) (string, error)
}

// NewsStore combines the store operations used by the ingest flow.
type NewsStore interface {
	CandidateStore
	SourceMerger
	ItemCreator
}

// EmbeddingCache is a best-effort key-value store for embedding vectors.
// Losing entries only costs recomputation.
type EmbeddingCache interface {
	// Get returns the cached vector for fingerprint. ok is false on a miss or expired entry.
	Get(ctx context.Context, fingerprint string) (vec []float32, ok bool, err error)

	// Set stores vec under fingerprint for ttl.
	Set(ctx context.Context, fingerprint string, vec []float32, ttl time.Duration) error
}

// ExpiringCache is implemented by caches that need explicit expired-entry cleanup.
type ExpiringCache interface {
	DeleteExpired(ctx context.Context) (int64, error)
}
