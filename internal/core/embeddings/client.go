// Package embeddings turns normalized text into fixed-size unit vectors.
//
// Providers are tried in priority order with automatic fallback:
//   - a local sentence-transformers server (rubert-tiny2 by default)
//   - OpenAI text-embedding-3
//   - Cohere embed-multilingual-v3.0
//   - Google gemini-embedding-001
//
// Each provider sits behind its own circuit breaker and rate limiter, and every
// vector is padded or truncated to the configured dimension. LazyClient defers
// provider setup to the first request, and Service adds the cache, request
// collapsing, truncation and L2 normalization on top.
package embeddings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	coreerrors "github.com/lueurxax/news-dedup/internal/core/errors"
)

// Client defines the interface for embedding operations.
type Client interface {
	// GetEmbedding generates an embedding for the given text. Provider and
	// Model of the result name whoever produced the vector.
	GetEmbedding(ctx context.Context, text string) (EmbeddingResult, error)
}

// ModelKey identifies the vector space of a provider model at a dimension.
// Vectors with different keys are not comparable.
func ModelKey(provider ProviderName, model string, dimensions int) string {
	return fmt.Sprintf("%s/%s@%d", provider, model, dimensions)
}

var _ Client = (*Registry)(nil)

const defaultProviderOrder = "local,openai,cohere,google"

// Config holds configuration for creating an embedding client.
type Config struct {
	// Local sentence-embedding server
	LocalEndpoint  string
	LocalModel     string
	LocalRateLimit int
	LocalTimeout   time.Duration
	MaxInputTokens int

	// OpenAI settings
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	OpenAIRateLimit int

	// Cohere settings
	CohereAPIKey    string
	CohereModel     string
	CohereRateLimit int

	// Google settings
	GoogleAPIKey    string
	GoogleModel     string
	GoogleRateLimit int

	// Provider order (comma-separated: "local,openai,cohere,google")
	ProviderOrder string

	CircuitBreakerConfig CircuitBreakerConfig

	// Target dimensions for output vectors
	TargetDimensions int
}

// NewClient creates a registry with every configured provider.
//
// The deterministic mock provider is used only when no provider is configured
// at all. When providers are configured but none of them can be initialized,
// NewClient returns an error wrapping ErrModelNotLoaded.
func NewClient(ctx context.Context, cfg Config, logger *zerolog.Logger) (*Registry, error) {
	if cfg.TargetDimensions <= 0 {
		cfg.TargetDimensions = DefaultDimensions
	}

	if cfg.CircuitBreakerConfig.Threshold <= 0 {
		cfg.CircuitBreakerConfig = DefaultCircuitBreakerConfig()
	}

	registry := NewRegistry(cfg.TargetDimensions, logger)

	configured := 0

	for _, provider := range ParseProviderOrder(cfg.ProviderOrder) {
		var ok bool

		switch ProviderName(provider) {
		case ProviderLocal:
			ok = registerLocal(ctx, registry, cfg, logger)
		case ProviderOpenAI:
			ok = registerOpenAI(registry, cfg)
		case ProviderCohere:
			ok = registerCohere(registry, cfg)
		case ProviderGoogle:
			ok = registerGoogle(ctx, registry, cfg, logger)
		case ProviderMock:
			registry.Register(NewMockProviderWithDimensions(cfg.TargetDimensions), cfg.CircuitBreakerConfig)
			ok = true
		default:
			logger.Warn().Str(logKeyProvider, provider).Msg("unknown embedding provider in order, skipping")
			continue
		}

		if ok || isConfigured(ProviderName(provider), cfg) {
			configured++
		}
	}

	if configured == 0 {
		logger.Warn().Msg("no embedding providers configured, using mock provider")
		registry.Register(NewMockProviderWithDimensions(cfg.TargetDimensions), cfg.CircuitBreakerConfig)

		return registry, nil
	}

	if registry.ProviderCount() == 0 {
		return nil, fmt.Errorf("%w: none of %d configured providers initialized", coreerrors.ErrModelNotLoaded, configured)
	}

	return registry, nil
}

// ParseProviderOrder splits a comma-separated provider order, lowercased. Empty means the default order.
func ParseProviderOrder(order string) []string {
	if strings.TrimSpace(order) == "" {
		order = defaultProviderOrder
	}

	var providers []string

	for _, p := range strings.Split(order, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			providers = append(providers, strings.ToLower(p))
		}
	}

	return providers
}

func isConfigured(name ProviderName, cfg Config) bool {
	switch name {
	case ProviderLocal:
		return cfg.LocalEndpoint != ""
	case ProviderOpenAI:
		return cfg.OpenAIAPIKey != "" && cfg.OpenAIAPIKey != mockAPIKey
	case ProviderCohere:
		return cfg.CohereAPIKey != ""
	case ProviderGoogle:
		return cfg.GoogleAPIKey != ""
	default:
		return false
	}
}

func registerLocal(ctx context.Context, registry *Registry, cfg Config, logger *zerolog.Logger) bool {
	if !isConfigured(ProviderLocal, cfg) {
		return false
	}

	local := NewLocalProvider(LocalConfig{
		Endpoint:       cfg.LocalEndpoint,
		Model:          cfg.LocalModel,
		Dimensions:     cfg.TargetDimensions,
		MaxInputTokens: cfg.MaxInputTokens,
		RateLimit:      cfg.LocalRateLimit,
		Timeout:        cfg.LocalTimeout,
	})

	if err := local.Probe(ctx); err != nil {
		logger.Error().Err(err).Str("endpoint", cfg.LocalEndpoint).Msg("local embedding model unavailable")
		return false
	}

	registry.Register(local, cfg.CircuitBreakerConfig)

	return true
}

func registerOpenAI(registry *Registry, cfg Config) bool {
	if !isConfigured(ProviderOpenAI, cfg) {
		return false
	}

	registry.Register(NewOpenAIProvider(OpenAIConfig{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.OpenAIModel,
		Dimensions: cfg.TargetDimensions,
		RateLimit:  cfg.OpenAIRateLimit,
	}), cfg.CircuitBreakerConfig)

	return true
}

func registerCohere(registry *Registry, cfg Config) bool {
	if !isConfigured(ProviderCohere, cfg) {
		return false
	}

	registry.Register(NewCohereProvider(CohereConfig{
		APIKey:    cfg.CohereAPIKey,
		Model:     cfg.CohereModel,
		RateLimit: cfg.CohereRateLimit,
	}), cfg.CircuitBreakerConfig)

	return true
}

func registerGoogle(ctx context.Context, registry *Registry, cfg Config, logger *zerolog.Logger) bool {
	if !isConfigured(ProviderGoogle, cfg) {
		return false
	}

	googleProvider, err := NewGoogleProvider(ctx, GoogleConfig{
		APIKey:    cfg.GoogleAPIKey,
		Model:     cfg.GoogleModel,
		RateLimit: cfg.GoogleRateLimit,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to create Google embedding provider")
		return false
	}

	if !googleProvider.IsAvailable() {
		return false
	}

	registry.Register(googleProvider, cfg.CircuitBreakerConfig)

	return true
}
