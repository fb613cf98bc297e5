package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/lueurxax/news-dedup/internal/core/domain"
	coreerrors "github.com/lueurxax/news-dedup/internal/core/errors"
	"github.com/lueurxax/news-dedup/internal/core/ports"
)

// Service defaults.
const (
	DefaultEmbedTimeout = 10 * time.Second
	DefaultCacheTTL     = 24 * time.Hour
)

const logKeyFingerprint = "fingerprint"

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Model          string // ModelKey of the preferred provider; cache lookups use it
	Dimensions     int
	MaxInputTokens int
	Timeout        time.Duration
	CacheTTL       time.Duration
}

// Service produces unit-length embeddings for normalized text.
// Results are cached by fingerprint and concurrent requests for the same text
// share one computation. Service never returns an error: an embedding that
// cannot be produced is reported as unavailable.
type Service struct {
	client Client
	cache  ports.EmbeddingCache
	cfg    ServiceConfig
	group  singleflight.Group
	logger *zerolog.Logger
}

// NewService creates a Service. cache may be nil to disable caching.
func NewService(client Client, cache ports.EmbeddingCache, cfg ServiceConfig, logger *zerolog.Logger) *Service {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	if cfg.MaxInputTokens <= 0 {
		cfg.MaxInputTokens = DefaultMaxInputTokens
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultEmbedTimeout
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	return &Service{
		client: client,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
	}
}

// Fingerprint returns the cache key for text embedded with model.
func Fingerprint(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\n" + text))
	return hex.EncodeToString(sum[:])
}

// Dimensions returns the length of every vector Embed returns.
func (s *Service) Dimensions() int {
	return s.cfg.Dimensions
}

// Embed returns the embedding of text, or false when none could be produced.
// The vector is tagged with the model that produced it: a fallback provider
// answers in its own vector space, so its vectors are cached under its own
// key. The returned slice must not be modified.
func (s *Service) Embed(ctx context.Context, text string) (domain.Embedding, bool) {
	if strings.TrimSpace(text) == "" {
		recordUnavailable(reasonEmptyText)
		return domain.Embedding{}, false
	}

	fp := Fingerprint(s.cfg.Model, text)

	if vec, ok := s.lookup(ctx, fp); ok {
		return domain.Embedding{Vector: vec, Model: s.cfg.Model}, true
	}

	ch := s.group.DoChan(fp, func() (interface{}, error) {
		// The shared computation must outlive a single caller giving up.
		computeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
		defer cancel()

		return s.compute(computeCtx, text)
	})

	select {
	case <-ctx.Done():
		recordUnavailable(reasonTimeout)
		return domain.Embedding{}, false
	case res := <-ch:
		if res.Err != nil {
			recordUnavailable(unavailableReason(res.Err))
			s.logger.Warn().Err(res.Err).Str(logKeyFingerprint, fp[:12]).Msg("embedding unavailable")

			return domain.Embedding{}, false
		}

		emb, ok := res.Val.(domain.Embedding)

		return emb, ok
	}
}

func (s *Service) lookup(ctx context.Context, fp string) ([]float32, bool) {
	if s.cache == nil {
		return nil, false
	}

	vec, ok, err := s.cache.Get(ctx, fp)
	if err != nil {
		recordCacheLookup(cacheResultErr)
		s.logger.Warn().Err(err).Str(logKeyFingerprint, fp[:12]).Msg("embedding cache read failed")

		return nil, false
	}

	if !ok || len(vec) != s.cfg.Dimensions {
		recordCacheLookup(cacheResultMiss)
		return nil, false
	}

	recordCacheLookup(cacheResultHit)

	return vec, true
}

func (s *Service) compute(ctx context.Context, text string) (domain.Embedding, error) {
	res, err := s.client.GetEmbedding(ctx, TruncateToTokens(text, s.cfg.MaxInputTokens))
	if err != nil {
		return domain.Embedding{}, err
	}

	if len(res.Vector) != s.cfg.Dimensions {
		return domain.Embedding{}, fmt.Errorf("%w: got %d, want %d", coreerrors.ErrDimensionMismatch, len(res.Vector), s.cfg.Dimensions)
	}

	if isZero(res.Vector) {
		return domain.Embedding{}, fmt.Errorf("%w: zero vector", coreerrors.ErrEmbeddingUnavailable)
	}

	emb := domain.Embedding{Vector: Normalize(res.Vector), Model: s.producedBy(res)}

	if s.cache != nil {
		fp := Fingerprint(emb.Model, text)

		err := s.cache.Set(ctx, fp, emb.Vector, s.cfg.CacheTTL)
		recordCacheWrite(err == nil)

		if err != nil {
			s.logger.Warn().Err(err).Str(logKeyFingerprint, fp[:12]).Msg("embedding cache write failed")
		}
	}

	return emb, nil
}

// producedBy is the model key of res. Clients that do not name a provider
// are taken to answer with the configured model.
func (s *Service) producedBy(res EmbeddingResult) string {
	if res.Provider == "" {
		return s.cfg.Model
	}

	return ModelKey(res.Provider, res.Model, s.cfg.Dimensions)
}

func unavailableReason(err error) string {
	switch {
	case errors.Is(err, coreerrors.ErrModelNotLoaded):
		return reasonNotLoaded
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return reasonTimeout
	case errors.Is(err, coreerrors.ErrDimensionMismatch):
		return reasonDimension
	default:
		return reasonProvider
	}
}

func isZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}

	return true
}
