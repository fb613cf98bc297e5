package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingCache stores embedding vectors in the embedding_cache table.
type EmbeddingCache struct {
	db *DB
}

// NewEmbeddingCache returns a Postgres-backed embedding cache.
func NewEmbeddingCache(db *DB) *EmbeddingCache {
	return &EmbeddingCache{db: db}
}

// Get returns the cached vector. Missing and expired rows are misses.
func (c *EmbeddingCache) Get(ctx context.Context, fingerprint string) ([]float32, bool, error) {
	var vec pgvector.Vector

	err := c.db.Pool.QueryRow(ctx, `
		SELECT embedding
		FROM embedding_cache
		WHERE fingerprint = $1 AND expires_at > NOW()
	`, fingerprint).Scan(&vec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("get cached embedding: %w", err)
	}

	return vec.Slice(), true, nil
}

// Set upserts the vector with a fresh expiry. A non-positive ttl is ignored.
func (c *EmbeddingCache) Set(ctx context.Context, fingerprint string, vec []float32, ttl time.Duration) error {
	if ttl <= 0 || len(vec) == 0 {
		return nil
	}

	_, err := c.db.Pool.Exec(ctx, `
		INSERT INTO embedding_cache (fingerprint, embedding, expires_at)
		VALUES ($1, $2, NOW() + make_interval(secs => $3))
		ON CONFLICT (fingerprint) DO UPDATE
		SET embedding = EXCLUDED.embedding,
			expires_at = EXCLUDED.expires_at
	`, fingerprint, pgvector.NewVector(vec), ttl.Seconds())
	if err != nil {
		return fmt.Errorf("set cached embedding: %w", err)
	}

	return nil
}

// DeleteExpired removes expired rows. Only one instance runs the cleanup at a time;
// the others report zero deletions.
func (c *EmbeddingCache) DeleteExpired(ctx context.Context) (int64, error) {
	var deleted int64

	_, err := c.db.WithTryAdvisoryLock(ctx, cacheCleanupLockID, func(ctx context.Context) error {
		tag, err := c.db.Pool.Exec(ctx, `DELETE FROM embedding_cache WHERE expires_at <= NOW()`)
		if err != nil {
			return fmt.Errorf("delete expired embeddings: %w", err)
		}

		deleted = tag.RowsAffected()

		return nil
	})

	return deleted, err
}
