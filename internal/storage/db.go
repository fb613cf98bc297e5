// Package db stores news items, their source links and cached embeddings in
// PostgreSQL.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	Logger *zerolog.Logger

	// MinRelevance is the gate used by FetchCandidates when onlyRelevant is set.
	MinRelevance float32
}

// PoolOptions sizes the connection pool. Zero fields keep the pgx defaults.
type PoolOptions struct {
	MaxConns          int32
	MinConns          int32
	MaxConnIdleTime   time.Duration
	MaxConnLifetime   time.Duration
	HealthCheckPeriod time.Duration
}

// Options configures Open.
type Options struct {
	Pool         PoolOptions
	MinRelevance float32

	// ConnectAttempts and RetryDelay cover a database that starts after the service.
	ConnectAttempts int
	RetryDelay      time.Duration
}

// DefaultOptions returns the pool sizing and retry policy used in production.
func DefaultOptions() Options {
	return Options{
		Pool: PoolOptions{
			MaxConns:          defaultMaxConns,
			MinConns:          defaultMinConns,
			MaxConnIdleTime:   defaultMaxConnIdleTime,
			MaxConnLifetime:   defaultMaxConnLifetime,
			HealthCheckPeriod: defaultHealthCheckPeriod,
		},
		MinRelevance:    DefaultMinRelevance,
		ConnectAttempts: defaultConnectAttempts,
		RetryDelay:      defaultRetryDelay,
	}
}

// New connects with DefaultOptions.
func New(ctx context.Context, dsn string, logger *zerolog.Logger) (*DB, error) {
	return Open(ctx, dsn, DefaultOptions(), logger)
}

// Open parses dsn and connects, retrying until the database answers a ping.
func Open(ctx context.Context, dsn string, opts Options, logger *zerolog.Logger) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	opts.Pool.apply(cfg)

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if opts.ConnectAttempts <= 0 {
		opts.ConnectAttempts = 1
	}

	pool, err := connect(ctx, cfg, opts, logger)
	if err != nil {
		return nil, err
	}

	return &DB{Pool: pool, Logger: logger, MinRelevance: opts.MinRelevance}, nil
}

func (o PoolOptions) apply(cfg *pgxpool.Config) {
	if o.MaxConns > 0 {
		cfg.MaxConns = o.MaxConns
	}

	if o.MinConns > 0 {
		cfg.MinConns = o.MinConns
	}

	if o.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = o.MaxConnIdleTime
	}

	if o.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = o.MaxConnLifetime
	}

	if o.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = o.HealthCheckPeriod
	}
}

func connect(ctx context.Context, cfg *pgxpool.Config, opts Options, logger *zerolog.Logger) (*pgxpool.Pool, error) {
	var lastErr error

	for attempt := 1; attempt <= opts.ConnectAttempts; attempt++ {
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}

			pool.Close()
		}

		lastErr = err

		if attempt == opts.ConnectAttempts {
			break
		}

		logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", opts.RetryDelay).Msg("database not ready")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to database: %w", ctx.Err())
		case <-time.After(opts.RetryDelay):
		}
	}

	return nil, fmt.Errorf("connect to database after %d attempts: %w", opts.ConnectAttempts, lastErr)
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	return nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
