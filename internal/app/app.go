// Package app provides the application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Serve mode: HTTP detection API with health probes, metrics and cache cleanup
//   - Check mode: one-shot duplicate check that merges or stores a single post
//   - Migrate mode: applies database migrations and exits
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/news-dedup/internal/core/cache"
	"github.com/lueurxax/news-dedup/internal/core/domain"
	"github.com/lueurxax/news-dedup/internal/core/embeddings"
	"github.com/lueurxax/news-dedup/internal/core/ports"
	"github.com/lueurxax/news-dedup/internal/httpapi"
	"github.com/lueurxax/news-dedup/internal/platform/config"
	"github.com/lueurxax/news-dedup/internal/platform/observability"
	"github.com/lueurxax/news-dedup/internal/platform/worker"
	"github.com/lueurxax/news-dedup/internal/process/dedup"
	db "github.com/lueurxax/news-dedup/internal/storage"
)

const (
	logFieldComponent = "component"
	logFieldBackend   = "backend"
	logFieldItemID    = "item_id"
)

const redisPingTimeout = 2 * time.Second

var errNoDatabase = errors.New("postgres embedding cache requires a database connection")

// Store is the persistence surface the application needs.
type Store interface {
	ports.NewsStore
	observability.Pinger
}

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg    *config.Config
	store  Store
	db     *db.DB
	logger *zerolog.Logger
}

// New creates a new App backed by database.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:    cfg,
		store:  database,
		db:     database,
		logger: logger,
	}
}

// NewWithStore creates an App backed by an arbitrary store. The postgres cache
// backend is unavailable without a database.
func NewWithStore(cfg *config.Config, store Store, logger *zerolog.Logger) *App {
	return &App{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

// Runtime is a fully wired detector plus the resources it owns.
type Runtime struct {
	Engine  *dedup.Engine
	Cleaner *worker.CacheCleaner // nil when the cache backend expires entries by itself

	closers []io.Closer
}

// Close releases resources owned by the runtime.
func (r *Runtime) Close() error {
	var firstErr error

	for _, c := range r.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Build wires the cache, embedding service and detection engine.
func (a *App) Build(ctx context.Context) (*Runtime, error) {
	rt := &Runtime{}

	embCache, err := a.newEmbeddingCache(ctx, rt)
	if err != nil {
		return nil, err
	}

	service := a.newEmbeddingService(rt, embCache)

	engineLogger := a.logger.With().Str(logFieldComponent, "dedup").Logger()

	engine, err := dedup.New(a.dedupConfig(), dedup.Deps{
		Store:    a.store,
		Merger:   a.store,
		Embedder: service,
		Logger:   &engineLogger,
	})
	if err != nil {
		_ = rt.Close()

		return nil, fmt.Errorf("build engine: %w", err)
	}

	rt.Engine = engine

	return rt, nil
}

func (a *App) dedupConfig() dedup.Config {
	d := a.cfg.Dedup

	return dedup.Config{
		TimeWindow:        d.TimeWindow(),
		LexicalThreshold:  d.LexicalThreshold,
		SemanticThreshold: d.SemanticThreshold,
		MinTextLength:     d.MinTextLength,
		ClusterEnabled:    d.ClusterEnabled,
		ClusterEps:        d.ClusterEps,
		MinClusterSize:    d.MinClusterSize,
		MaxCandidates:     d.MaxCandidates,
		FetchTimeout:      d.FetchTimeout,
	}
}

func (a *App) newEmbeddingCache(ctx context.Context, rt *Runtime) (ports.EmbeddingCache, error) {
	c := a.cfg.Cache
	if !c.Enabled {
		return nil, nil //nolint:nilnil // a nil cache disables caching
	}

	logger := a.logger.With().Str(logFieldComponent, "embedding_cache").Logger()

	var (
		backend ports.EmbeddingCache
		expiry  ports.ExpiringCache
	)

	switch c.Backend {
	case config.CacheBackendRedis:
		redisCache := cache.DialRedis(cache.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		if err := redisCache.Ping(pingCtx); err != nil {
			logger.Warn().Err(err).Str("addr", c.RedisAddr).Msg("redis unreachable, embedding cache misses until it recovers")
		}
		cancel()

		rt.closers = append(rt.closers, redisCache)
		backend = redisCache
	case config.CacheBackendPostgres:
		if a.db == nil {
			return nil, errNoDatabase
		}

		pgCache := db.NewEmbeddingCache(a.db)
		backend, expiry = pgCache, pgCache
	default:
		memory := cache.NewMemory()
		backend, expiry = memory, memory
	}

	if expiry != nil {
		rt.Cleaner = worker.NewCacheCleaner(expiry, c.CleanupInterval, &logger)
	}

	logger.Info().Str(logFieldBackend, c.Backend).Dur("ttl", c.TTL()).Msg("embedding cache enabled")

	return backend, nil
}

func (a *App) newEmbeddingService(rt *Runtime, embCache ports.EmbeddingCache) *embeddings.Service {
	logger := a.logger.With().Str(logFieldComponent, "embeddings").Logger()
	e := a.cfg.Embedding

	clientCfg := embeddings.Config{
		LocalEndpoint:   e.LocalURL,
		LocalModel:      e.Model,
		LocalRateLimit:  e.LocalRateLimit,
		LocalTimeout:    e.Timeout,
		MaxInputTokens:  e.MaxInputTokens,
		OpenAIAPIKey:    e.OpenAIAPIKey,
		OpenAIBaseURL:   e.OpenAIBaseURL,
		OpenAIModel:     e.OpenAIModel,
		OpenAIRateLimit: e.OpenAIRateLimit,
		CohereAPIKey:    e.CohereAPIKey,
		CohereModel:     e.CohereModel,
		CohereRateLimit: e.CohereRateLimit,
		GoogleAPIKey:    e.GoogleAPIKey,
		GoogleModel:     e.GoogleModel,
		GoogleRateLimit: e.GoogleRateLimit,
		ProviderOrder:   e.ProviderOrder,
		CircuitBreakerConfig: embeddings.CircuitBreakerConfig{
			Threshold:  e.CircuitThreshold,
			ResetAfter: e.CircuitReset,
		},
		TargetDimensions: e.Dimensions,
	}

	lazy := embeddings.NewLazyClient(func(ctx context.Context) (embeddings.Client, error) {
		return embeddings.NewClient(ctx, clientCfg, &logger)
	}, e.LoadRetryAfter, &logger)
	rt.closers = append(rt.closers, lazy)

	return embeddings.NewService(lazy, embCache, embeddings.ServiceConfig{
		Model:          cacheModelKey(a.cfg),
		Dimensions:     e.Dimensions,
		MaxInputTokens: e.MaxInputTokens,
		Timeout:        e.Timeout,
		CacheTTL:       a.cfg.Cache.TTL(),
	}, &logger)
}

// cacheModelKey is the ModelKey of the provider the registry tries first:
// the highest-priority configured provider listed in the order, or the mock
// when none is configured. Vectors from a fallback provider are cached under
// their own key.
func cacheModelKey(cfg *config.Config) string {
	e := cfg.Embedding

	listed := map[string]bool{}
	for _, name := range embeddings.ParseProviderOrder(e.ProviderOrder) {
		listed[name] = true
	}

	byPriority := []struct {
		name       embeddings.ProviderName
		model      string
		configured bool
	}{
		{embeddings.ProviderLocal, e.Model, e.LocalURL != ""},
		{embeddings.ProviderOpenAI, e.OpenAIModel, e.OpenAIAPIKey != ""},
		{embeddings.ProviderCohere, e.CohereModel, e.CohereAPIKey != ""},
		{embeddings.ProviderGoogle, e.GoogleModel, e.GoogleAPIKey != ""},
	}

	for _, p := range byPriority {
		if p.configured && listed[string(p.name)] {
			return embeddings.ModelKey(p.name, p.model, e.Dimensions)
		}
	}

	return embeddings.ModelKey(embeddings.ProviderMock, embeddings.MockModel, e.Dimensions)
}

// RunServe serves the detection API until ctx is canceled.
func (a *App) RunServe(ctx context.Context) error {
	rt, err := a.Build(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err := rt.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("runtime close failed")
		}
	}()

	handlerLogger := a.logger.With().Str(logFieldComponent, "httpapi").Logger()
	srv := observability.NewServer(a.store, a.cfg.HealthPort, a.logger, observability.Route{
		Pattern: httpapi.DetectPath,
		Handler: httpapi.NewDetectHandler(rt.Engine, &handlerLogger),
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start(gctx)
	})

	if rt.Cleaner != nil {
		g.Go(func() error {
			return rt.Cleaner.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}

// CheckOutcome reports what RunCheck did with a post.
type CheckOutcome struct {
	Result dedup.Result `json:"result"`
	ItemID string       `json:"item_id"` // Matched item for duplicates, newly created item otherwise
}

// RunCheck checks one post: a duplicate is merged into the matched item,
// anything else is stored as a new item.
func (a *App) RunCheck(ctx context.Context, post domain.Post) (CheckOutcome, error) {
	rt, err := a.Build(ctx)
	if err != nil {
		return CheckOutcome{}, err
	}

	defer func() {
		_ = rt.Close()
	}()

	return a.check(ctx, rt.Engine, post)
}

func (a *App) check(ctx context.Context, engine *dedup.Engine, post domain.Post) (CheckOutcome, error) {
	res, err := engine.DetectAndMerge(ctx, post)
	if err != nil {
		return CheckOutcome{Result: res}, fmt.Errorf("check post: %w", err)
	}

	if res.IsDuplicate {
		return CheckOutcome{Result: res, ItemID: res.MatchedID}, nil
	}

	id, err := a.store.CreateItem(ctx, domain.NewItem{
		Title:     post.Title,
		Content:   post.Content,
		SourceID:  post.SourceID,
		SourceURL: post.SourceURL,
		// Posts reaching check mode are treated as relevant.
		RelevanceScore: 1,
	})
	if err != nil {
		return CheckOutcome{Result: res}, fmt.Errorf("create item: %w", err)
	}

	a.logger.Info().Str(logFieldItemID, id).Str("reason", res.Reason).Msg("new item stored")

	return CheckOutcome{Result: res, ItemID: id}, nil
}
