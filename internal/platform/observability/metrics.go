package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DedupChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_checks_total",
		Help: "Total number of duplicate checks by deciding method",
	}, []string{"method"})

	DedupSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_checks_skipped_total",
		Help: "Checks that ended before any stage ran, by reason",
	}, []string{"reason"})

	DedupStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dedup_stage_duration_seconds",
		Help:    "Duration of a single detection stage",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"stage"})

	DedupCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dedup_check_duration_seconds",
		Help:    "End-to-end duration of a duplicate check",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	DedupCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dedup_candidates_fetched",
		Help:    "Number of candidates fetched per check",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200, 500},
	})

	DedupCandidateFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dedup_candidate_fetch_errors_total",
		Help: "Candidate fetches that failed or timed out",
	})

	DedupSourceMerges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_source_merges_total",
		Help: "Source links attached to existing items",
	}, []string{"status"})

	EmbeddingCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_embedding_cache_requests_total",
		Help: "Embedding cache lookups by result (hit, miss, error)",
	}, []string{"result"})

	EmbeddingCacheWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_embedding_cache_writes_total",
		Help: "Embedding cache writes by status",
	}, []string{"status"})

	EmbeddingCacheEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dedup_embedding_cache_evicted_total",
		Help: "Expired embedding cache entries removed by the cleanup worker",
	})

	EmbeddingUnavailable = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_embedding_unavailable_total",
		Help: "Embedding computations that yielded no vector, by reason",
	}, []string{"reason"})

	EmbeddingModelLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dedup_embedding_model_loaded",
		Help: "Whether the embedding model has been loaded (0=no, 1=yes)",
	})

	// Embedding provider metrics
	EmbeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_embedding_requests_total",
		Help: "Total number of embedding requests",
	}, []string{"provider", "model", "status"})

	EmbeddingTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_embedding_tokens_total",
		Help: "Total number of tokens processed for embeddings",
	}, []string{"provider", "model"})

	EmbeddingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dedup_embedding_latency_seconds",
		Help:    "Latency of embedding requests by provider",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"provider", "model"})

	EmbeddingEstimatedCost = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_embedding_estimated_cost_millicents_total",
		Help: "Estimated embedding cost in millicents (0.001 cents)",
	}, []string{"provider", "model"})

	EmbeddingProviderAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dedup_embedding_provider_available",
		Help: "Whether embedding provider is currently available (0=no, 1=yes)",
	}, []string{"provider"})

	EmbeddingFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_embedding_fallbacks_total",
		Help: "Total number of embedding fallback events",
	}, []string{"from_provider", "to_provider"})

	WorkerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dedup_worker_runs_total",
		Help: "Background worker iterations by worker and status",
	}, []string{"worker", "status"})
)
