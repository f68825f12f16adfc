package redis

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient connects to REDIS_HOST; the tests are skipped without one.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis test in short mode")
	}
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		t.Skip("REDIS_HOST is not set")
	}
	port := 6379
	if p, err := strconv.Atoi(os.Getenv("REDIS_PORT")); err == nil {
		port = p
	}

	logger := ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
	client, err := NewClient(context.Background(), Config{Host: host, Port: port}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLocker(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	locker := NewLocker(client, "organizer:test:lock:", 5*time.Second, 100*time.Millisecond)
	key := uuid.NewString()

	release, err := locker.Hold(ctx, key)
	require.NoError(t, err)

	t.Run("second holder times out", func(t *testing.T) {
		_, err := locker.Hold(ctx, key)
		require.Error(t, err)
		assert.Equal(t, 409, httperror.GetStatusCode(err))
	})

	release()

	t.Run("free after release", func(t *testing.T) {
		release, err := locker.Hold(ctx, key)
		require.NoError(t, err)
		release()
	})

	t.Run("release of a stolen lock", func(t *testing.T) {
		lock, err := locker.Acquire(ctx, key, time.Second)
		require.NoError(t, err)
		require.NoError(t, client.Set(ctx, lock.key, "someone-else", time.Second))
		assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)
	})
}

func TestContactCache(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	cache := NewContactCache(client, time.Minute)
	email := uuid.NewString() + "@Example.com"

	_, ok, err := cache.Get(ctx, email)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, email, "contact-1"))
	id, ok, err := cache.Get(ctx, "  "+email)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "contact-1", id)

	ttl, err := client.TTL(ctx, cache.key(email))
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.Delete(ctx, email))
	_, ok, err = cache.Get(ctx, email)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateLimiter(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	limiter := NewRateLimiter(client, "organizer:test:ratelimit:", 2, 500*time.Millisecond)
	key := uuid.NewString()

	for i := 0; i < 2; i++ {
		res, err := limiter.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryIn, time.Duration(0))

	t.Run("wait admits after the window", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, limiter.Wait(ctx, key))
		assert.Greater(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("wait honours ctx", func(t *testing.T) {
		blocked := uuid.NewString()
		require.NoError(t, limiter.BlockFor(ctx, blocked, 5*time.Second))
		ok, ttl, err := limiter.IsBlocked(ctx, blocked)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Greater(t, ttl, time.Duration(0))

		waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, limiter.Wait(waitCtx, blocked), context.DeadlineExceeded)
	})
}
