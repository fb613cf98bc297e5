package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/news-dedup/internal/core/errors"
)

const testFingerprint = "abc123"

func TestMemory_GetSet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, ok, err := m.Get(ctx, testFingerprint)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache should miss")

	require.NoError(t, m.Set(ctx, testFingerprint, []float32{0.6, 0.8}, time.Hour))

	vec, ok, err := m.Get(ctx, testFingerprint)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{0.6, 0.8}, vec)

	// Returned slices must not alias the stored entry.
	vec[0] = 42

	again, _, _ := m.Get(ctx, testFingerprint)
	assert.Equal(t, float32(0.6), again[0])
}

func TestMemory_LazyExpiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	require.NoError(t, m.Set(ctx, testFingerprint, []float32{1}, time.Minute))
	assert.Equal(t, 1, m.Len())

	current = current.Add(2 * time.Minute)

	_, ok, err := m.Get(ctx, testFingerprint)
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must be a miss")
	assert.Equal(t, 0, m.Len(), "expired entry must be evicted on read")
}

func TestMemory_DeleteExpired(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	current := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	require.NoError(t, m.Set(ctx, "short", []float32{1}, time.Minute))
	require.NoError(t, m.Set(ctx, "long", []float32{1}, time.Hour))

	current = current.Add(10 * time.Minute)

	removed, err := m.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 1, m.Len())
}

func TestMemory_NonPositiveTTLIgnored(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.Set(context.Background(), testFingerprint, []float32{1}, 0))
	assert.Equal(t, 0, m.Len())
}

func TestVectorCodec(t *testing.T) {
	vec := []float32{0, -1.5, 3.25, 1e-7}

	got, err := DecodeVector(EncodeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	_, err = DecodeVector([]byte{1, 2, 3})
	assert.ErrorIs(t, err, coreerrors.ErrCacheCorrupt)

	_, err = DecodeVector(nil)
	assert.ErrorIs(t, err, coreerrors.ErrCacheCorrupt)
}
