package embeddings

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrNoProvidersAvailable = errors.New("no embedding providers available")
	ErrAllProvidersFailed   = errors.New("all embedding providers failed")
)

const logKeyProvider = "provider"

// Registry tries providers in priority order and shapes every vector to the
// target dimension. A provider whose circuit is open is skipped.
type Registry struct {
	mu              sync.RWMutex
	entries         []*registryEntry // highest priority first
	targetDimension int
	logger          *zerolog.Logger
}

type registryEntry struct {
	provider Provider
	breaker  *CircuitBreaker
}

func NewRegistry(targetDimension int, logger *zerolog.Logger) *Registry {
	return &Registry{targetDimension: targetDimension, logger: logger}
}

// Register adds p, replacing a provider with the same name.
func (r *Registry) Register(p Provider, cfg CircuitBreakerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	entry := &registryEntry{provider: p, breaker: NewCircuitBreaker(name, cfg, r.logger)}

	if i := slices.IndexFunc(r.entries, func(e *registryEntry) bool { return e.provider.Name() == name }); i >= 0 {
		r.entries[i] = entry
	} else {
		r.entries = append(r.entries, entry)
	}

	slices.SortStableFunc(r.entries, func(a, b *registryEntry) int {
		return b.provider.Priority() - a.provider.Priority()
	})

	SetEmbeddingProviderAvailable(string(name), p.IsAvailable())

	r.logger.Info().
		Str(logKeyProvider, string(name)).
		Str("model", p.Model()).
		Int("priority", p.Priority()).
		Int("dimensions", p.Dimensions()).
		Msg("registered embedding provider")
}

// GetEmbedding returns a vector of the target dimension from the first
// provider that succeeds, together with the provider and model that answered.
func (r *Registry) GetEmbedding(ctx context.Context, text string) (EmbeddingResult, error) {
	entries := r.snapshot()
	if len(entries) == 0 {
		return EmbeddingResult{}, ErrNoProvidersAvailable
	}

	primary := string(entries[0].provider.Name())

	var errs []error

	for _, e := range entries {
		name := string(e.provider.Name())

		if !e.provider.IsAvailable() {
			continue
		}

		if !e.breaker.CanAttempt() {
			SetEmbeddingProviderAvailable(name, false)
			r.logger.Debug().Str(logKeyProvider, name).Msg("embedding provider circuit open, skipping")

			continue
		}

		res, err := r.attempt(ctx, e, text)
		if err != nil {
			if ctx.Err() != nil {
				return EmbeddingResult{}, ctx.Err()
			}

			errs = append(errs, err)

			continue
		}

		if name != primary {
			RecordEmbeddingFallback(primary, name)
			r.logger.Info().Str(logKeyProvider, name).Str("from_provider", primary).Msg("used fallback embedding provider")
		}

		res.Vector = PadToTargetDimensions(res.Vector, r.targetDimension)
		res.Dimensions = len(res.Vector)

		return res, nil
	}

	if len(errs) == 0 {
		return EmbeddingResult{}, ErrNoProvidersAvailable
	}

	return EmbeddingResult{}, errors.Join(append([]error{ErrAllProvidersFailed}, errs...)...)
}

// attempt calls one provider and feeds its breaker and metrics. A canceled
// caller does not count against the provider.
func (r *Registry) attempt(ctx context.Context, e *registryEntry, text string) (EmbeddingResult, error) {
	name, model := string(e.provider.Name()), e.provider.Model()

	start := time.Now()
	res, err := e.provider.GetEmbedding(ctx, text)
	RecordEmbeddingLatency(name, model, time.Since(start))
	RecordEmbeddingRequest(name, model, err == nil)

	switch {
	case err == nil:
		e.breaker.RecordSuccess()
		RecordEmbeddingTokens(name, model, estimateTokens(text))
		SetEmbeddingProviderAvailable(name, true)
	case ctx.Err() == nil:
		e.breaker.RecordFailure()
		r.logger.Warn().Err(err).Str(logKeyProvider, name).Msg("embedding provider failed, trying fallback")
	}

	return res, err
}

func (r *Registry) snapshot() []*registryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.entries)
}

// Close releases providers holding connections.
func (r *Registry) Close() error {
	var errs []error

	for _, e := range r.snapshot() {
		if c, ok := e.provider.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}

	return errors.Join(errs...)
}

// Model is the model id of the highest-priority provider.
func (r *Registry) Model() string {
	entries := r.snapshot()
	if len(entries) == 0 {
		return ""
	}

	return entries[0].provider.Model()
}

// Dimensions is the size every returned vector is padded or truncated to.
func (r *Registry) Dimensions() int {
	return r.targetDimension
}

func (r *Registry) ProviderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// ProviderNames lists providers in priority order.
func (r *Registry) ProviderNames() []ProviderName {
	entries := r.snapshot()
	names := make([]ProviderName, 0, len(entries))

	for _, e := range entries {
		names = append(names, e.provider.Name())
	}

	return names
}
