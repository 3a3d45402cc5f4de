package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_Expiry(t *testing.T) {
	m := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set("a", category{Name: "x"}, time.Minute))

	var got category
	require.NoError(t, m.Get("a", &got))
	assert.Equal(t, "x", got.Name)

	now = now.Add(time.Minute)
	assert.ErrorIs(t, m.Get("a", &got), ErrCacheMiss)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryCache_CopiesValues(t *testing.T) {
	m := NewMemoryCache()
	original := []string{"a"}
	require.NoError(t, m.Set("k", original, time.Minute))
	original[0] = "mutated"

	var got []string
	require.NoError(t, m.Get("k", &got))
	assert.Equal(t, []string{"a"}, got)
}

func TestMemoryCache_DeletePattern(t *testing.T) {
	m := NewMemoryCache()
	_ = m.Set("categories:1", 1, time.Minute)
	_ = m.Set("categories:2", 2, time.Minute)
	_ = m.Set("users", 3, time.Minute)

	m.DeletePattern("categories:*")
	assert.Equal(t, 1, m.Len())
}

func TestMultiLevelCache_WithoutRedis(t *testing.T) {
	c := NewMultiLevelCache(nil, time.Minute)
	ctx := context.Background()

	var got category
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", category{Name: "Work"}, time.Hour))
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "Work", got.Name)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)

	snap := c.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.L1Hits)
	assert.Equal(t, int64(2), snap.Misses)
}

func TestMultiLevelCache_FillsL1FromRedis(t *testing.T) {
	redisCache, _ := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, redisCache.Set(ctx, "k", category{Name: "Shared"}, time.Hour))

	c := NewMultiLevelCache(redisCache, time.Minute)

	var got category
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "Shared", got.Name)
	require.NoError(t, c.Get(ctx, "k", &got))

	snap := c.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.L2Hits)
	assert.Equal(t, int64(1), snap.L1Hits)
	assert.InDelta(t, 100.0, c.Metrics().HitRate(), 0.001)
}

func TestMultiLevelCache_RedisOutageDegradesToMiss(t *testing.T) {
	redisCache, mr := setupTestRedis(t)
	c := NewMultiLevelCache(redisCache, time.Minute)
	ctx := context.Background()
	mr.Close()

	assert.NoError(t, c.Set(ctx, "k", 1, time.Hour), "write succeeds locally")

	var got int
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, 1, got)

	assert.ErrorIs(t, c.Get(ctx, "other", &got), ErrCacheMiss)
	assert.Positive(t, c.Metrics().Snapshot().Errors)
}
