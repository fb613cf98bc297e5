package db

import "time"

const (
	defaultConnectAttempts = 10
	defaultRetryDelay      = 2 * time.Second
)

// Pool sizing for a detector serving a handful of concurrent checks.
const (
	defaultMaxConns          int32         = 25
	defaultMinConns          int32         = 5
	defaultMaxConnIdleTime   time.Duration = 30 * time.Minute
	defaultMaxConnLifetime   time.Duration = time.Hour
	defaultHealthCheckPeriod time.Duration = time.Minute
)

// Advisory lock identifiers.
const (
	migrationLockID    int64 = 1000
	cacheCleanupLockID int64 = 1001
)

// DefaultMinRelevance is the relevance gate applied when callers ask for relevant candidates only.
const DefaultMinRelevance float32 = 0.5
