package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	coreerrors "github.com/lueurxax/news-dedup/internal/core/errors"
)

// AppEnvLocal selects human-readable console logging.
const AppEnvLocal = "local"

type Config struct {
	AppEnv     string `env:"APP_ENV" envDefault:"local"`
	HealthPort int    `env:"HEALTH_PORT" envDefault:"8080"`

	Database  DatabaseConfig
	Dedup     DedupConfig
	Embedding EmbeddingConfig
	Cache     CacheConfig
}

// Load reads an optional .env file and the environment, then validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	applyAliases(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyAliases fills provider keys from the names used by other deployments.
func applyAliases(cfg *Config) {
	if cfg.Embedding.OpenAIAPIKey == "" {
		setStringFromEnv("LLM_API_KEY", &cfg.Embedding.OpenAIAPIKey)
	}

	if cfg.Embedding.GoogleAPIKey == "" {
		setStringFromEnv("GEMINI_API_KEY", &cfg.Embedding.GoogleAPIKey)
	}
}

func setStringFromEnv(key string, target *string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	val = strings.TrimSpace(val)
	if val == "" {
		return
	}

	*target = val
}

// Validate reports every out-of-range setting. Each error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error

	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{coreerrors.ErrInvalidConfig}, args...)...))
	}

	d := c.Dedup

	if d.TimeWindowHours <= 0 {
		invalid("DEDUP_TIME_WINDOW_HOURS must be positive, got %d", d.TimeWindowHours)
	}

	if d.LexicalThreshold <= 0 || d.LexicalThreshold >= 1 {
		invalid("DEDUP_LEXICAL_THRESHOLD must be in (0, 1), got %v", d.LexicalThreshold)
	}

	if d.SemanticThreshold <= 0 || d.SemanticThreshold >= 1 {
		invalid("DEDUP_SEMANTIC_THRESHOLD must be in (0, 1), got %v", d.SemanticThreshold)
	}

	if d.MinTextLength <= 0 {
		invalid("DEDUP_MIN_TEXT_LENGTH must be positive, got %d", d.MinTextLength)
	}

	if d.ClusterEps <= 0 || d.ClusterEps > 2 {
		invalid("DEDUP_CLUSTER_EPS must be in (0, 2], got %v", d.ClusterEps)
	}

	if d.MinClusterSize < 2 {
		invalid("DEDUP_MIN_CLUSTER_SIZE must be at least 2, got %d", d.MinClusterSize)
	}

	if d.MaxCandidates <= 0 {
		invalid("DEDUP_MAX_CANDIDATES must be positive, got %d", d.MaxCandidates)
	}

	if d.MinRelevance < 0 || d.MinRelevance > 1 {
		invalid("DEDUP_MIN_RELEVANCE must be in [0, 1], got %v", d.MinRelevance)
	}

	if d.FetchTimeout <= 0 {
		invalid("DEDUP_FETCH_TIMEOUT must be positive, got %s", d.FetchTimeout)
	}

	e := c.Embedding

	if e.Dimensions <= 0 {
		invalid("EMBEDDING_DIMENSIONS must be positive, got %d", e.Dimensions)
	}

	if e.MaxInputTokens <= 0 {
		invalid("EMBEDDING_MAX_TOKENS must be positive, got %d", e.MaxInputTokens)
	}

	if e.Timeout <= 0 {
		invalid("EMBEDDING_TIMEOUT must be positive, got %s", e.Timeout)
	}

	if c.Cache.TTLHours <= 0 {
		invalid("EMBEDDING_CACHE_TTL_HOURS must be positive, got %d", c.Cache.TTLHours)
	}

	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendPostgres:
	default:
		invalid("EMBEDDING_CACHE_BACKEND must be one of memory, redis, postgres, got %q", c.Cache.Backend)
	}

	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		invalid("HEALTH_PORT must be a valid port, got %d", c.HealthPort)
	}

	return errors.Join(errs...)
}
