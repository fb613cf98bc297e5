package embeddings

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// ProviderName identifies an embedding provider.
type ProviderName string

const (
	ProviderLocal  ProviderName = "local"
	ProviderOpenAI ProviderName = "openai"
	ProviderCohere ProviderName = "cohere"
	ProviderGoogle ProviderName = "google"
	ProviderMock   ProviderName = "mock"
)

// Higher priority is tried first.
const (
	PriorityPrimary        = 100
	PriorityFallback       = 50
	PrioritySecondFallback = 40
	PriorityThirdFallback  = 30
	PriorityMock           = 0
)

// Defaults match the multilingual rubert-tiny2 sentence encoder.
const (
	DefaultLocalModel     = "cointegrated/rubert-tiny2"
	DefaultDimensions     = 312
	DefaultMaxInputTokens = 512
)

const (
	errRateLimiterFmt = "rate limiter: %w"

	// An OpenAI key equal to this value is treated as unset.
	mockAPIKey = "mock"
)

// EmbeddingResult is one provider answer before padding and normalization.
type EmbeddingResult struct {
	Vector     []float32
	Dimensions int
	Provider   ProviderName
	Model      string
}

// Provider turns text into a vector.
type Provider interface {
	Name() ProviderName
	// Model is used for metrics and logs.
	Model() string
	GetEmbedding(ctx context.Context, text string) (EmbeddingResult, error)
	IsAvailable() bool
	// Priority orders providers, higher first.
	Priority() int
	// Dimensions is the native output size before padding.
	Dimensions() int
}

// availability is the on/off switch every provider carries.
type availability struct {
	on atomic.Bool
}

func (a *availability) IsAvailable() bool { return a.on.Load() }

func (a *availability) set(v bool) { a.on.Store(v) }

// newLimiter builds a token bucket, falling back to def requests per second.
func newLimiter(rps, def, burst int) *rate.Limiter {
	if rps <= 0 {
		rps = def
	}

	return rate.NewLimiter(rate.Limit(rps), burst)
}

func throttle(ctx context.Context, l *rate.Limiter) error {
	if err := l.Wait(ctx); err != nil {
		return fmt.Errorf(errRateLimiterFmt, err)
	}

	return nil
}

func result(name ProviderName, model string, vec []float32) EmbeddingResult {
	return EmbeddingResult{
		Vector:     vec,
		Dimensions: len(vec),
		Provider:   name,
		Model:      model,
	}
}
