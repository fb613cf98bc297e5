package config

import "time"

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	PostgresDSN       string        `env:"POSTGRES_DSN,required"`
	MaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"25"`
	MinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"5"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

// DedupConfig holds duplicate detection settings.
type DedupConfig struct {
	TimeWindowHours   int           `env:"DEDUP_TIME_WINDOW_HOURS" envDefault:"48"`
	LexicalThreshold  float64       `env:"DEDUP_LEXICAL_THRESHOLD" envDefault:"0.85"`
	SemanticThreshold float64       `env:"DEDUP_SEMANTIC_THRESHOLD" envDefault:"0.85"`
	MinTextLength     int           `env:"DEDUP_MIN_TEXT_LENGTH" envDefault:"30"`
	ClusterEnabled    bool          `env:"DEDUP_CLUSTER_ENABLED" envDefault:"true"`
	ClusterEps        float64       `env:"DEDUP_CLUSTER_EPS" envDefault:"0.3"`
	MinClusterSize    int           `env:"DEDUP_MIN_CLUSTER_SIZE" envDefault:"2"`
	MaxCandidates     int           `env:"DEDUP_MAX_CANDIDATES" envDefault:"100"`
	MinRelevance      float32       `env:"DEDUP_MIN_RELEVANCE" envDefault:"0.5"`
	FetchTimeout      time.Duration `env:"DEDUP_FETCH_TIMEOUT" envDefault:"5s"`
}

// TimeWindow returns the candidate window as a duration.
func (c DedupConfig) TimeWindow() time.Duration {
	return time.Duration(c.TimeWindowHours) * time.Hour
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Model          string        `env:"EMBEDDING_MODEL" envDefault:"cointegrated/rubert-tiny2"`
	Dimensions     int           `env:"EMBEDDING_DIMENSIONS" envDefault:"312"`
	MaxInputTokens int           `env:"EMBEDDING_MAX_TOKENS" envDefault:"512"`
	Timeout        time.Duration `env:"EMBEDDING_TIMEOUT" envDefault:"10s"`
	LoadRetryAfter time.Duration `env:"EMBEDDING_LOAD_RETRY_AFTER" envDefault:"30s"`
	ProviderOrder  string        `env:"EMBEDDING_PROVIDER_ORDER" envDefault:"local,openai,cohere,google"`

	LocalURL       string `env:"EMBEDDING_LOCAL_URL"`
	LocalRateLimit int    `env:"EMBEDDING_LOCAL_RPS" envDefault:"50"`

	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL"`
	OpenAIModel     string `env:"OPENAI_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	OpenAIRateLimit int    `env:"OPENAI_EMBEDDING_RPS" envDefault:"10"`

	CohereAPIKey    string `env:"COHERE_API_KEY"`
	CohereModel     string `env:"COHERE_EMBEDDING_MODEL" envDefault:"embed-multilingual-v3.0"`
	CohereRateLimit int    `env:"COHERE_EMBEDDING_RPS" envDefault:"10"`

	GoogleAPIKey    string `env:"GOOGLE_API_KEY"`
	GoogleModel     string `env:"GOOGLE_EMBEDDING_MODEL" envDefault:"gemini-embedding-001"`
	GoogleRateLimit int    `env:"GOOGLE_EMBEDDING_RPS" envDefault:"10"`

	CircuitThreshold int           `env:"EMBEDDING_CIRCUIT_THRESHOLD" envDefault:"5"`
	CircuitReset     time.Duration `env:"EMBEDDING_CIRCUIT_RESET" envDefault:"1m"`
}

// Cache backends.
const (
	CacheBackendMemory   = "memory"
	CacheBackendRedis    = "redis"
	CacheBackendPostgres = "postgres"
)

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Enabled         bool          `env:"EMBEDDING_CACHE_ENABLED" envDefault:"true"`
	TTLHours        int           `env:"EMBEDDING_CACHE_TTL_HOURS" envDefault:"24"`
	Backend         string        `env:"EMBEDDING_CACHE_BACKEND" envDefault:"memory"`
	CleanupInterval time.Duration `env:"CACHE_CLEANUP_INTERVAL" envDefault:"10m"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// TTL returns the cache entry lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}
