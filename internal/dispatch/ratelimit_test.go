package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterLimiter(t *testing.T) {
	ctx := context.Background()
	limiter := NewCounterLimiter()

	// Fresh key is always under the limit.
	ok, err := limiter.Check(ctx, "sms:2026-08-31", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, limiter.Incr(ctx, "sms:2026-08-31", time.Hour))
	ok, _ = limiter.Check(ctx, "sms:2026-08-31", 2)
	assert.True(t, ok)

	require.NoError(t, limiter.Incr(ctx, "sms:2026-08-31", time.Hour))
	ok, _ = limiter.Check(ctx, "sms:2026-08-31", 2)
	assert.False(t, ok)

	// Checking never consumes budget.
	for i := 0; i < 10; i++ {
		_, _ = limiter.Check(ctx, "sms:2026-08-31", 2)
	}
	assert.Equal(t, 2, limiter.counts["sms:2026-08-31"].n)

	// Keys are independent.
	ok, _ = limiter.Check(ctx, "sms:2026-08-31T13", 2)
	assert.True(t, ok)
}

func TestCounterLimiter_Expiry(t *testing.T) {
	ctx := context.Background()
	limiter := NewCounterLimiter()

	require.NoError(t, limiter.Incr(ctx, "sms:old", time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	ok, err := limiter.Check(ctx, "sms:old", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotContains(t, limiter.counts, "sms:old")
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	limiter := NewRedisLimiter(client)

	ok, err := limiter.Check(ctx, "sms:2026-08-31", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, limiter.Incr(ctx, "sms:2026-08-31", time.Hour))
	require.NoError(t, limiter.Incr(ctx, "sms:2026-08-31", time.Hour))

	ok, err = limiter.Check(ctx, "sms:2026-08-31", 2)
	require.NoError(t, err)
	assert.False(t, ok)

	// TTL is set once, on the first increment.
	assert.Greater(t, mr.TTL("sms:2026-08-31"), time.Duration(0))

	mr.FastForward(2 * time.Hour)
	ok, err = limiter.Check(ctx, "sms:2026-08-31", 2)
	require.NoError(t, err)
	assert.True(t, ok)
}
