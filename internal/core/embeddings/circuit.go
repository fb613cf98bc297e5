package embeddings

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	coreerrors "github.com/lueurxax/news-dedup/internal/core/errors"
)

const defaultCircuitThreshold = 5

// CircuitBreakerConfig controls when a provider is skipped.
type CircuitBreakerConfig struct {
	Threshold  int           // consecutive failures that open the circuit
	ResetAfter time.Duration // how long the circuit stays open
}

// DefaultCircuitBreakerConfig opens after five failures for one minute.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Threshold:  defaultCircuitThreshold,
		ResetAfter: time.Minute,
	}
}

// CircuitBreaker stops calling a provider after consecutive failures
// and lets a single attempt through once ResetAfter has elapsed.
type CircuitBreaker struct {
	mu                  sync.Mutex
	provider            ProviderName
	threshold           int
	resetAfter          time.Duration
	consecutiveFailures int
	openUntil           time.Time
	now                 func() time.Time
	logger              *zerolog.Logger
}

// NewCircuitBreaker creates a circuit breaker for one provider.
func NewCircuitBreaker(provider ProviderName, cfg CircuitBreakerConfig, logger *zerolog.Logger) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultCircuitThreshold
	}

	return &CircuitBreaker{
		provider:   provider,
		threshold:  cfg.Threshold,
		resetAfter: cfg.ResetAfter,
		now:        time.Now,
		logger:     logger,
	}
}

// CanAttempt returns true if the circuit allows an attempt.
func (cb *CircuitBreaker) CanAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return !cb.now().Before(cb.openUntil)
}

// CheckCircuit returns an error if the circuit is open.
func (cb *CircuitBreaker) CheckCircuit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.now().Before(cb.openUntil) {
		return fmt.Errorf("%w for %s until %v", coreerrors.ErrCircuitBreakerOpen, cb.provider, cb.openUntil)
	}

	return nil
}

// RecordSuccess resets the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
}

// RecordFailure counts a failure and opens the circuit when the threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures++

	if cb.consecutiveFailures < cb.threshold {
		return
	}

	cb.openUntil = cb.now().Add(cb.resetAfter)
	cb.consecutiveFailures = 0

	if cb.logger != nil {
		cb.logger.Warn().
			Str(logKeyProvider, string(cb.provider)).
			Int("threshold", cb.threshold).
			Time("open_until", cb.openUntil).
			Msg("embedding circuit breaker opened")
	}
}

// IsOpen returns true if the circuit is currently open.
func (cb *CircuitBreaker) IsOpen() bool {
	return !cb.CanAttempt()
}
