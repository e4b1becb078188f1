package bucket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zeropass/pkg/requestcontext"
)

func TestInMemoryBucketStore_Allow(t *testing.T) {
	store := NewInMemoryBucketStore()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) context.Context {
		return requestcontext.WithTime(context.Background(), start.Add(d))
	}

	t.Run("requests up to the limit are allowed", func(t *testing.T) {
		for i := range 3 {
			result, err := store.Allow(at(time.Duration(i)*time.Second), "k", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, result.Allowed)
			assert.Equal(t, 3, result.Limit)
			assert.Equal(t, 2-i, result.Remaining)
			assert.Equal(t, start.Add(time.Minute), result.ResetAt)
		}
	})

	t.Run("request over the limit is denied until the oldest entry ages out", func(t *testing.T) {
		result, err := store.Allow(at(10*time.Second), "k", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, 0, result.Remaining)
		assert.Equal(t, start.Add(time.Minute), result.ResetAt)
		assert.Equal(t, 50, result.RetryAfter)
	})

	t.Run("window slides", func(t *testing.T) {
		result, err := store.Allow(at(time.Minute), "k", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})

	t.Run("keys are independent", func(t *testing.T) {
		result, err := store.Allow(at(10*time.Second), "other", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})
}

func TestInMemoryBucketStore_AllowN(t *testing.T) {
	store := NewInMemoryBucketStore()
	ctx := requestcontext.WithTime(context.Background(), time.Now())

	result, err := store.AllowN(ctx, "k", 4, 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, result.Remaining)

	result, err = store.AllowN(ctx, "k", 2, 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	count, err := store.GetCurrentCount(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestInMemoryBucketStore_ResetAndCleanup(t *testing.T) {
	store := NewInMemoryBucketStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	_, err := store.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	_, err = store.Allow(ctx, "b", 1, time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx, "a"))
	count, err := store.GetCurrentCount(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = store.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	removed, err := store.Cleanup(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	count, err = store.GetCurrentCount(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInMemoryBucketStore_Concurrent(t *testing.T) {
	store := NewInMemoryBucketStore()
	ctx := requestcontext.WithTime(context.Background(), time.Now())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 50 {
		wg.Go(func() {
			result, err := store.Allow(ctx, "shared", 20, time.Minute)
			if err == nil && result.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	assert.Equal(t, 20, allowed)
}
