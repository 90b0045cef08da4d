package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryBucketStore_WindowFillsAndSlides(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewInMemoryBucketStore()
	store.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		result, err := store.Allow(context.Background(), "user:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 2-i, result.Remaining)
	}

	result, err := store.Allow(context.Background(), "user:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Positive(t, result.RetryAfter)

	// Advance past the window; the oldest entries expire.
	now = now.Add(61 * time.Second)
	result, err = store.Allow(context.Background(), "user:1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestInMemoryBucketStore_KeysAreIndependent(t *testing.T) {
	store := NewInMemoryBucketStore()

	result, err := store.Allow(context.Background(), "user:1", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, result.Allowed)

	result, err = store.Allow(context.Background(), "user:1", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	result, err = store.Allow(context.Background(), "user:2", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "other users are unaffected")
}

func TestInMemoryBucketStore_Reset(t *testing.T) {
	store := NewInMemoryBucketStore()

	_, err := store.Allow(context.Background(), "user:1", 1, time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.Reset(context.Background(), "user:1"))

	result, err := store.Allow(context.Background(), "user:1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestLimiter_FailsOpenOnStoreError(t *testing.T) {
	limiter := NewLimiter(erroringStore{}, 5, time.Minute, nil)
	result := limiter.Allow(context.Background(), "user:1")
	assert.True(t, result.Allowed)
}

func TestLimiter_DisabledWithoutStoreOrLimit(t *testing.T) {
	assert.True(t, NewLimiter(nil, 5, time.Minute, nil).Allow(context.Background(), "x").Allowed)
	assert.True(t, NewLimiter(NewInMemoryBucketStore(), 0, time.Minute, nil).Allow(context.Background(), "x").Allowed)
}

func TestLimiter_EnforcesPolicy(t *testing.T) {
	limiter := NewLimiter(NewInMemoryBucketStore(), 2, time.Minute, nil)

	assert.True(t, limiter.Allow(context.Background(), "user:1").Allowed)
	assert.True(t, limiter.Allow(context.Background(), "user:1").Allowed)
	assert.False(t, limiter.Allow(context.Background(), "user:1").Allowed)
}

type erroringStore struct{}

func (erroringStore) Allow(context.Context, string, int, time.Duration) (*Result, error) {
	return nil, errors.New("connection refused")
}

func (erroringStore) Reset(context.Context, string) error {
	return errors.New("connection refused")
}
