package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "dedup:embedding:"

// RedisConfig holds connection settings for the Redis cache.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Redis stores embeddings in Redis with native key expiry.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	r := DialRedis(cfg)

	if err := r.Ping(ctx); err != nil {
		_ = r.Close()

		return nil, err
	}

	return r, nil
}

// DialRedis returns a cache whose client connects on first use and
// reconnects after Redis comes back. Until then every call fails.
func DialRedis(cfg RedisConfig) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return NewRedisWithClient(client, cfg.KeyPrefix)
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}

	return &Redis{client: client, prefix: prefix}
}

// Get returns the cached vector. A missing key is a miss, not an error.
func (r *Redis) Get(ctx context.Context, fingerprint string) ([]float32, bool, error) {
	buf, err := r.client.Get(ctx, r.prefix+fingerprint).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	vec, err := DecodeVector(buf)
	if err != nil {
		return nil, false, err
	}

	return vec, true, nil
}

// Set stores vec with the given ttl.
func (r *Redis) Set(ctx context.Context, fingerprint string, vec []float32, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	if err := r.client.Set(ctx, r.prefix+fingerprint, EncodeVector(vec), ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}

	return nil
}
