package embeddings

import (
	"time"

	"github.com/lueurxax/news-dedup/internal/platform/observability"
)

// Metric status constants.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	// Cost per 1M tokens (in USD) - approximate values.
	costOpenAILargePer1M = 0.13  // text-embedding-3-large
	costOpenAISmallPer1M = 0.02  // text-embedding-3-small
	costCoherePer1M      = 0.10  // embed-multilingual-v3.0
	costGooglePer1M      = 0.025 // gemini-embedding-001

	// Conversion factor.
	usdToMillicents  = 100000.0
	tokensPerMillion = 1000000.0
)

// Reasons an embedding is reported unavailable.
const (
	reasonNotLoaded = "not_loaded"
	reasonTimeout   = "timeout"
	reasonProvider  = "provider_error"
	reasonDimension = "dimension_mismatch"
	reasonEmptyText = "empty_text"
)

// Cache lookup results.
const (
	cacheResultHit  = "hit"
	cacheResultMiss = "miss"
	cacheResultErr  = "error"
)

// RecordEmbeddingRequest records an embedding request metric.
func RecordEmbeddingRequest(provider, model string, success bool) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}

	observability.EmbeddingRequests.WithLabelValues(provider, model, status).Inc()
}

// RecordEmbeddingTokens records embedding token usage.
func RecordEmbeddingTokens(provider, model string, tokens int) {
	if tokens <= 0 {
		return
	}

	observability.EmbeddingTokens.WithLabelValues(provider, model).Add(float64(tokens))

	if cost := estimateEmbeddingCost(provider, model, tokens); cost > 0 {
		observability.EmbeddingEstimatedCost.WithLabelValues(provider, model).Add(cost * usdToMillicents)
	}
}

// RecordEmbeddingLatency records embedding request latency.
func RecordEmbeddingLatency(provider, model string, duration time.Duration) {
	observability.EmbeddingLatency.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordEmbeddingFallback records a fallback event.
func RecordEmbeddingFallback(fromProvider, toProvider string) {
	observability.EmbeddingFallbacks.WithLabelValues(fromProvider, toProvider).Inc()
}

// SetEmbeddingProviderAvailable sets the availability status of a provider.
func SetEmbeddingProviderAvailable(provider string, available bool) {
	observability.EmbeddingProviderAvailable.WithLabelValues(provider).Set(boolGauge(available))
}

func recordCacheLookup(result string) {
	observability.EmbeddingCacheRequests.WithLabelValues(result).Inc()
}

func recordCacheWrite(success bool) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}

	observability.EmbeddingCacheWrites.WithLabelValues(status).Inc()
}

func recordUnavailable(reason string) {
	observability.EmbeddingUnavailable.WithLabelValues(reason).Inc()
}

func setModelLoaded(loaded bool) {
	observability.EmbeddingModelLoaded.Set(boolGauge(loaded))
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}

	return 0
}

// estimateEmbeddingCost calculates the estimated cost in USD for embeddings.
// Local and mock providers are free.
func estimateEmbeddingCost(provider, model string, tokens int) float64 {
	var costPer1M float64

	switch provider {
	case string(ProviderOpenAI):
		if model == ModelTextEmbedding3Large {
			costPer1M = costOpenAILargePer1M
		} else {
			costPer1M = costOpenAISmallPer1M
		}
	case string(ProviderCohere):
		costPer1M = costCoherePer1M
	case string(ProviderGoogle):
		costPer1M = costGooglePer1M
	default:
		return 0
	}

	return (float64(tokens) / tokensPerMillion) * costPer1M
}
