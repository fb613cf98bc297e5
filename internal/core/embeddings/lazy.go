package embeddings

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	coreerrors "github.com/lueurxax/news-dedup/internal/core/errors"
)

// DefaultLoadRetryAfter is how long a failed load is remembered before the next attempt.
const DefaultLoadRetryAfter = 30 * time.Second

// Loader builds the underlying client. It is called at most once per successful load.
type Loader func(ctx context.Context) (Client, error)

// LazyClient defers loading the embedding model until the first request.
// Concurrent first requests trigger a single load; a failed load is retried
// on a later request once retryAfter has passed.
type LazyClient struct {
	load       Loader
	retryAfter time.Duration
	logger     *zerolog.Logger
	now        func() time.Time

	loaded atomic.Bool
	mu     sync.Mutex
	client Client

	lastFailure time.Time
	lastErr     error
}

// NewLazyClient wraps load. A non-positive retryAfter retries on every call.
func NewLazyClient(load Loader, retryAfter time.Duration, logger *zerolog.Logger) *LazyClient {
	return &LazyClient{
		load:       load,
		retryAfter: retryAfter,
		logger:     logger,
		now:        time.Now,
	}
}

// GetEmbedding loads the model if needed and embeds text.
func (l *LazyClient) GetEmbedding(ctx context.Context, text string) (EmbeddingResult, error) {
	client, err := l.Client(ctx)
	if err != nil {
		return EmbeddingResult{}, err
	}

	return client.GetEmbedding(ctx, text)
}

// Client returns the loaded client, loading it on first use.
func (l *LazyClient) Client(ctx context.Context) (Client, error) {
	if l.loaded.Load() {
		return l.client, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded.Load() {
		return l.client, nil
	}

	if l.lastErr != nil && l.now().Sub(l.lastFailure) < l.retryAfter {
		return nil, fmt.Errorf("%w: %w", coreerrors.ErrModelNotLoaded, l.lastErr)
	}

	start := l.now()

	client, err := l.load(ctx)
	if err != nil {
		l.lastFailure = l.now()
		l.lastErr = err

		setModelLoaded(false)
		l.logger.Error().Err(err).Dur("retry_after", l.retryAfter).Msg("embedding model load failed")

		return nil, fmt.Errorf("%w: %w", coreerrors.ErrModelNotLoaded, err)
	}

	l.client = client
	l.lastErr = nil
	l.loaded.Store(true)

	setModelLoaded(true)
	l.logger.Info().Dur("took", l.now().Sub(start)).Msg("embedding model loaded")

	return client, nil
}

// Loaded reports whether the model has been loaded.
func (l *LazyClient) Loaded() bool {
	return l.loaded.Load()
}

// Close closes the loaded client when it holds resources.
func (l *LazyClient) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.client.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
