package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/news-dedup/internal/core/ports"
	"github.com/lueurxax/news-dedup/internal/platform/observability"
)

const (
	cacheCleanupName    = "embedding_cache_cleanup"
	cacheCleanupTimeout = time.Minute

	runStatusSuccess = "success"
	runStatusError   = "error"
)

// CacheCleaner periodically removes expired embedding cache entries.
type CacheCleaner struct {
	cache    ports.ExpiringCache
	interval time.Duration
	logger   *zerolog.Logger
}

// NewCacheCleaner creates a cleaner for cache running every interval.
func NewCacheCleaner(cache ports.ExpiringCache, interval time.Duration, logger *zerolog.Logger) *CacheCleaner {
	return &CacheCleaner{
		cache:    cache,
		interval: interval,
		logger:   getLogger(logger),
	}
}

// Run blocks until ctx is canceled.
func (c *CacheCleaner) Run(ctx context.Context) error {
	return TickerLoop(ctx, TickerConfig{
		Name:     cacheCleanupName,
		Interval: c.interval,
		OnTick:   func(ctx context.Context) { _, _ = c.RunOnce(ctx) },
		Logger:   c.logger,
	})
}

// RunOnce deletes expired entries and returns how many were removed.
func (c *CacheCleaner) RunOnce(ctx context.Context) (int64, error) {
	var deleted int64

	err := RunWithTimeout(ctx, cacheCleanupTimeout, func(ctx context.Context) error {
		var err error

		deleted, err = c.cache.DeleteExpired(ctx)

		return err
	})
	if err != nil {
		observability.WorkerRuns.WithLabelValues(cacheCleanupName, runStatusError).Inc()
		c.logger.Warn().Err(err).Str(logFieldWorker, cacheCleanupName).Msg("embedding cache cleanup failed")

		return 0, err
	}

	observability.WorkerRuns.WithLabelValues(cacheCleanupName, runStatusSuccess).Inc()
	observability.EmbeddingCacheEvicted.Add(float64(deleted))

	if deleted > 0 {
		c.logger.Debug().Int64("deleted", deleted).Msg("expired embeddings removed")
	}

	return deleted, nil
}
