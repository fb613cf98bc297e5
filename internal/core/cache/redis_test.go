package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_Integration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r, err := NewRedis(ctx, RedisConfig{Addr: addr, KeyPrefix: "dedup:test:" + uuid.NewString() + ":"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	require.NoError(t, r.Ping(ctx))

	_, ok, err := r.Get(ctx, testFingerprint)
	require.NoError(t, err)
	assert.False(t, ok)

	vec := []float32{0.6, -0.8, 0}
	require.NoError(t, r.Set(ctx, testFingerprint, vec, time.Minute))

	got, ok, err := r.Get(ctx, testFingerprint)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, vec, got)

	require.NoError(t, r.Set(ctx, "short", vec, 50*time.Millisecond))
	time.Sleep(150 * time.Millisecond)

	_, ok, err = r.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok, "redis expires keys natively")
}

func TestNewRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewRedis(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}

func TestDialRedis_UnreachableFailsPerCall(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	r := DialRedis(RedisConfig{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = r.Close() })

	require.Error(t, r.Ping(ctx))

	_, ok, err := r.Get(ctx, testFingerprint)
	require.Error(t, err, "a connection failure is an error, not a miss")
	assert.False(t, ok)

	require.Error(t, r.Set(ctx, testFingerprint, []float32{1, 0}, time.Minute))
}
