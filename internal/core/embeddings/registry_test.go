package embeddings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/news-dedup/internal/core/errors"
)

type stubProvider struct {
	name     ProviderName
	priority int
	dims     int
	calls    atomic.Int32
	err      error
}

func (p *stubProvider) Name() ProviderName { return p.name }
func (p *stubProvider) Model() string      { return "stub-" + string(p.name) }
func (p *stubProvider) Priority() int      { return p.priority }
func (p *stubProvider) Dimensions() int    { return p.dims }
func (p *stubProvider) IsAvailable() bool  { return true }

func (p *stubProvider) GetEmbedding(context.Context, string) (EmbeddingResult, error) {
	p.calls.Add(1)

	if p.err != nil {
		return EmbeddingResult{}, p.err
	}

	vec := make([]float32, p.dims)
	vec[0] = 1

	return EmbeddingResult{Vector: vec, Dimensions: p.dims, Provider: p.name, Model: p.Model()}, nil
}

func TestRegistry_FallsBackInPriorityOrder(t *testing.T) {
	primary := &stubProvider{name: ProviderLocal, priority: PriorityPrimary, dims: 5, err: errProviderDown}
	fallback := &stubProvider{name: ProviderOpenAI, priority: PriorityFallback, dims: 3}

	registry := NewRegistry(5, nopLogger())
	registry.Register(fallback, DefaultCircuitBreakerConfig())
	registry.Register(primary, DefaultCircuitBreakerConfig())

	assert.Equal(t, []ProviderName{ProviderLocal, ProviderOpenAI}, registry.ProviderNames())
	assert.Equal(t, "stub-local", registry.Model())

	res, err := registry.GetEmbedding(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, res.Provider)
	assert.Equal(t, []float32{1, 0, 0, 0, 0}, res.Vector, "vector must be padded to target")
	assert.Equal(t, 5, res.Dimensions)
	assert.Equal(t, int32(1), primary.calls.Load())
}

func TestRegistry_AllProvidersFailed(t *testing.T) {
	registry := NewRegistry(3, nopLogger())
	registry.Register(&stubProvider{name: ProviderLocal, priority: PriorityPrimary, dims: 3, err: errProviderDown}, DefaultCircuitBreakerConfig())

	_, err := registry.GetEmbedding(context.Background(), "text")
	require.ErrorIs(t, err, ErrAllProvidersFailed)
	require.ErrorIs(t, err, errProviderDown)
}

func TestRegistry_CircuitBreakerSkipsFailingProvider(t *testing.T) {
	primary := &stubProvider{name: ProviderLocal, priority: PriorityPrimary, dims: 3, err: errProviderDown}
	fallback := &stubProvider{name: ProviderMock, priority: PriorityMock, dims: 3}

	cfg := CircuitBreakerConfig{Threshold: 2, ResetAfter: time.Hour}

	registry := NewRegistry(3, nopLogger())
	registry.Register(primary, cfg)
	registry.Register(fallback, cfg)

	for range 4 {
		_, err := registry.GetEmbedding(context.Background(), "text")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(2), primary.calls.Load(), "open circuit must skip the primary")
	assert.Equal(t, int32(4), fallback.calls.Load())
}

func TestCircuitBreaker_ResetsAfterTimeout(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	cb := NewCircuitBreaker(ProviderLocal, CircuitBreakerConfig{Threshold: 1, ResetAfter: time.Minute}, nopLogger())
	cb.now = func() time.Time { return clock }

	require.NoError(t, cb.CheckCircuit())

	cb.RecordFailure()
	assert.True(t, cb.IsOpen())
	require.ErrorIs(t, cb.CheckCircuit(), coreerrors.ErrCircuitBreakerOpen)

	clock = clock.Add(time.Minute)
	assert.True(t, cb.CanAttempt())

	cb.RecordSuccess()
	assert.False(t, cb.IsOpen())
}

func TestNewClient_UsesMockWhenNothingConfigured(t *testing.T) {
	registry, err := NewClient(context.Background(), Config{TargetDimensions: 8}, nopLogger())
	require.NoError(t, err)

	assert.Equal(t, []ProviderName{ProviderMock}, registry.ProviderNames())

	res, err := registry.GetEmbedding(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, res.Vector, 8)
	assert.Equal(t, ProviderMock, res.Provider)
	assert.Equal(t, MockModel, res.Model)
}

func TestNewClient_ConfiguredProviderUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(context.Background(), Config{
		LocalEndpoint:    srv.URL,
		ProviderOrder:    "local",
		TargetDimensions: 3,
	}, nopLogger())

	require.ErrorIs(t, err, coreerrors.ErrModelNotLoaded)
}

func TestParseProviderOrder(t *testing.T) {
	assert.Equal(t, []string{"local", "openai", "cohere", "google"}, ParseProviderOrder(""))
	assert.Equal(t, []string{"openai", "local"}, ParseProviderOrder(" OpenAI , ,local"))
}

func TestRegistry_CloseClosesProviders(t *testing.T) {
	registry := NewRegistry(4, nopLogger())

	closed := 0
	google := newGoogleProvider(GoogleConfig{}, func(context.Context, string) ([]float32, error) {
		return []float32{1}, nil
	})
	google.closer = func() error {
		closed++
		return nil
	}

	registry.Register(google, DefaultCircuitBreakerConfig())
	registry.Register(NewMockProviderWithDimensions(4), DefaultCircuitBreakerConfig())

	lazy := NewLazyClient(func(context.Context) (Client, error) { return registry, nil }, time.Second, nopLogger())
	require.NoError(t, lazy.Close(), "closing before load is a no-op")

	_, err := lazy.GetEmbedding(context.Background(), "text")
	require.NoError(t, err)

	require.NoError(t, lazy.Close())
	assert.Equal(t, 1, closed)
}
