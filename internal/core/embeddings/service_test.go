package embeddings

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/news-dedup/internal/core/errors"
	"github.com/lueurxax/news-dedup/internal/core/ports"
	"github.com/lueurxax/news-dedup/internal/core/ports/mocks"
)

const testModel = "test-model"

var errProviderDown = errors.New("provider down")

type countingClient struct {
	calls    atomic.Int32
	lastText atomic.Value
	vec      []float32
	err      error
	gate     chan struct{}
}

func (c *countingClient) GetEmbedding(ctx context.Context, text string) (EmbeddingResult, error) {
	c.calls.Add(1)
	c.lastText.Store(text)

	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return EmbeddingResult{}, ctx.Err()
		}
	}

	if c.err != nil {
		return EmbeddingResult{}, c.err
	}

	out := make([]float32, len(c.vec))
	copy(out, c.vec)

	return EmbeddingResult{Vector: out, Dimensions: len(out)}, nil
}

func nopLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func newTestService(client Client, cache ports.EmbeddingCache, model string) *Service {
	return NewService(client, cache, ServiceConfig{
		Model:          model,
		Dimensions:     3,
		MaxInputTokens: 8,
		Timeout:        time.Second,
		CacheTTL:       time.Hour,
	}, nopLogger())
}

func TestService_Embed_ReturnsUnitVector(t *testing.T) {
	client := &countingClient{vec: []float32{3, 0, 4}}
	svc := newTestService(client, nil, testModel)

	emb, ok := svc.Embed(context.Background(), "мэр открыл новый мост")
	require.True(t, ok)
	assert.Equal(t, testModel, emb.Model)

	vec := emb.Vector
	require.Len(t, vec, 3)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.0, vec[1], 1e-6)
	assert.InDelta(t, 0.8, vec[2], 1e-6)
}

func TestService_Embed_CacheTransparency(t *testing.T) {
	client := &countingClient{vec: []float32{1, 2, 2}}
	cache := mocks.NewEmbeddingCache()
	svc := newTestService(client, cache, testModel)
	ctx := context.Background()

	first, ok := svc.Embed(ctx, "same text")
	require.True(t, ok)

	second, ok := svc.Embed(ctx, "same text")
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), client.calls.Load(), "second call must be served from cache")
	assert.Equal(t, 1, cache.Sets())

	_, ok = svc.Embed(ctx, "other text")
	require.True(t, ok)
	assert.Equal(t, int32(2), client.calls.Load())
}

func TestService_Embed_CacheKeyIncludesModel(t *testing.T) {
	client := &countingClient{vec: []float32{1, 0, 0}}
	cache := mocks.NewEmbeddingCache()
	ctx := context.Background()

	_, ok := newTestService(client, cache, "model-a").Embed(ctx, "text")
	require.True(t, ok)

	_, ok = newTestService(client, cache, "model-b").Embed(ctx, "text")
	require.True(t, ok)

	assert.Equal(t, int32(2), client.calls.Load())
	assert.Equal(t, 2, cache.Len())
}

func TestService_Embed_FallbackVectorKeyedByProducingModel(t *testing.T) {
	primary := &stubProvider{name: ProviderLocal, priority: PriorityPrimary, dims: 3, err: errProviderDown}
	fallback := &stubProvider{name: ProviderOpenAI, priority: PriorityFallback, dims: 3}

	registry := NewRegistry(3, nopLogger())
	registry.Register(primary, DefaultCircuitBreakerConfig())
	registry.Register(fallback, DefaultCircuitBreakerConfig())

	primaryKey := ModelKey(ProviderLocal, primary.Model(), 3)
	fallbackKey := ModelKey(ProviderOpenAI, fallback.Model(), 3)

	cache := mocks.NewEmbeddingCache()
	svc := newTestService(registry, cache, primaryKey)
	ctx := context.Background()

	query, ok := svc.Embed(ctx, "мост открыт")
	require.True(t, ok)
	assert.Equal(t, fallbackKey, query.Model)

	_, cached, err := cache.Get(ctx, Fingerprint(primaryKey, "мост открыт"))
	require.NoError(t, err)
	assert.False(t, cached, "a fallback vector must not be cached under the primary model")

	_, cached, err = cache.Get(ctx, Fingerprint(fallbackKey, "мост открыт"))
	require.NoError(t, err)
	assert.True(t, cached)

	primary.err = nil

	candidate, ok := svc.Embed(ctx, "мост открыт вчера")
	require.True(t, ok)
	assert.Equal(t, primaryKey, candidate.Model)
	assert.NotEqual(t, query.Model, candidate.Model)

	again, ok := svc.Embed(ctx, "мост открыт")
	require.True(t, ok)
	assert.Equal(t, primaryKey, again.Model, "a recovered primary re-embeds instead of serving the fallback vector")
}

func TestModelKey(t *testing.T) {
	assert.Equal(t, "openai/text-embedding-3-small@64", ModelKey(ProviderOpenAI, "text-embedding-3-small", 64))
	assert.NotEqual(t, ModelKey(ProviderLocal, "m", 64), ModelKey(ProviderLocal, "m", 32))
}

func TestService_Embed_CacheErrorsDegradeToMiss(t *testing.T) {
	client := &countingClient{vec: []float32{0, 1, 0}}
	cache := mocks.NewEmbeddingCache()
	cache.GetFn = func(context.Context, string) ([]float32, bool, error) {
		return nil, false, errors.New("cache offline")
	}
	cache.SetFn = func(context.Context, string, []float32, time.Duration) error {
		return errors.New("cache offline")
	}

	svc := newTestService(client, cache, testModel)

	emb, ok := svc.Embed(context.Background(), "text")
	require.True(t, ok)
	assert.Equal(t, []float32{0, 1, 0}, emb.Vector)
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestService_Embed_IgnoresCachedVectorOfWrongDimension(t *testing.T) {
	client := &countingClient{vec: []float32{0, 0, 1}}
	cache := mocks.NewEmbeddingCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, Fingerprint(testModel, "text"), []float32{1, 0}, time.Hour))

	emb, ok := newTestService(client, cache, testModel).Embed(ctx, "text")
	require.True(t, ok)
	assert.Equal(t, []float32{0, 0, 1}, emb.Vector)
	assert.Equal(t, int32(1), client.calls.Load())
}

func TestService_Embed_Unavailable(t *testing.T) {
	tests := []struct {
		name   string
		client *countingClient
		text   string
	}{
		{
			name:   "provider error",
			client: &countingClient{err: errProviderDown},
			text:   "text",
		},
		{
			name:   "model not loaded",
			client: &countingClient{err: coreerrors.ErrModelNotLoaded},
			text:   "text",
		},
		{
			name:   "wrong dimension",
			client: &countingClient{vec: []float32{1, 0}},
			text:   "text",
		},
		{
			name:   "zero vector",
			client: &countingClient{vec: []float32{0, 0, 0}},
			text:   "text",
		},
		{
			name:   "empty text",
			client: &countingClient{vec: []float32{1, 0, 0}},
			text:   "   ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := mocks.NewEmbeddingCache()
			svc := newTestService(tt.client, cache, testModel)

			emb, ok := svc.Embed(context.Background(), tt.text)
			assert.False(t, ok)
			assert.Nil(t, emb.Vector)
			assert.Equal(t, 0, cache.Len(), "failures must not be cached")
		})
	}
}

func TestService_Embed_Timeout(t *testing.T) {
	client := &countingClient{vec: []float32{1, 0, 0}, gate: make(chan struct{})}
	svc := NewService(client, nil, ServiceConfig{
		Model:      testModel,
		Dimensions: 3,
		Timeout:    20 * time.Millisecond,
	}, nopLogger())

	start := time.Now()
	_, ok := svc.Embed(context.Background(), "slow text")

	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestService_Embed_CollapsesConcurrentRequests(t *testing.T) {
	client := &countingClient{vec: []float32{1, 1, 0}, gate: make(chan struct{})}
	svc := newTestService(client, mocks.NewEmbeddingCache(), testModel)

	const callers = 10

	var (
		wg      sync.WaitGroup
		okCount atomic.Int32
	)

	for range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, ok := svc.Embed(context.Background(), "breaking news"); ok {
				okCount.Add(1)
			}
		}()
	}

	require.Eventually(t, func() bool { return client.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(client.gate)
	wg.Wait()

	assert.Equal(t, int32(1), client.calls.Load())
	assert.Equal(t, int32(callers), okCount.Load())
}

func TestService_Embed_TruncatesLongInput(t *testing.T) {
	client := &countingClient{vec: []float32{1, 0, 0}}
	svc := newTestService(client, nil, testModel)

	_, ok := svc.Embed(context.Background(), "alpha beta gamma delta epsilon zeta eta theta")
	require.True(t, ok)

	sent, _ := client.lastText.Load().(string)
	assert.Equal(t, "alpha beta gamma delta epsilon", sent)
	assert.LessOrEqual(t, utf8.RuneCountInString(sent), 8*charsPerToken)
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint(testModel, "text")

	assert.Len(t, fp, 64)
	assert.Equal(t, fp, Fingerprint(testModel, "text"))
	assert.NotEqual(t, fp, Fingerprint("other-model", "text"))
	assert.NotEqual(t, fp, Fingerprint(testModel, "text2"))
}
