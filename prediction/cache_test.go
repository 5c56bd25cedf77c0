package prediction

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults(id int64) *Results {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	return &Results{
		UploadID: id,
		Predictions: []StoredPrediction{
			{ID: 1, UploadID: id, CustomerID: "a", ChurnProbability: 0.25, ChurnLabel: 0, CreatedAt: ts},
			{ID: 2, UploadID: id, CustomerID: "b", ChurnProbability: 0.8, ChurnLabel: 1, CreatedAt: ts},
		},
	}
}

func TestResultsCacheInterfaceExists(t *testing.T) {
	var _ ResultsCache = (*InMemoryResultsCache)(nil)
	var _ ResultsCache = (*RedisResultsCache)(nil)
}

func TestInMemoryResultsCache_GetSet(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryResultsCache(DefaultCacheConfig())

	_, ok, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, sampleResults(1)))

	got, ok, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleResults(1), got)

	// Callers get copies.
	got.Predictions[0].CustomerID = "mutated"
	again, _, _ := cache.Get(ctx, 1)
	assert.Equal(t, "a", again.Predictions[0].CustomerID)
}

func TestInMemoryResultsCache_TTL(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryResultsCache(CacheConfig{TTL: time.Minute})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, sampleResults(1)))

	now = now.Add(30 * time.Second)
	_, ok, _ := cache.Get(ctx, 1)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = cache.Get(ctx, 1)
	assert.False(t, ok, "entry should have expired")

	// Expired entries are evicted on the next write.
	require.NoError(t, cache.Set(ctx, sampleResults(2)))
	assert.Equal(t, 1, cache.Len())
}

func TestInMemoryResultsCache_NoExpiry(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryResultsCache(CacheConfig{TTL: 0})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, sampleResults(1)))
	now = now.Add(24 * time.Hour)

	_, ok, _ := cache.Get(ctx, 1)
	assert.True(t, ok)
}

func TestInMemoryResultsCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryResultsCache(DefaultCacheConfig())
	require.NoError(t, cache.Set(ctx, sampleResults(1)))
	require.NoError(t, cache.Set(ctx, sampleResults(2)))

	require.NoError(t, cache.Invalidate(ctx, 1))

	_, ok, _ := cache.Get(ctx, 1)
	assert.False(t, ok)
	_, ok, _ = cache.Get(ctx, 2)
	assert.True(t, ok)
}

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisResultsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisResultsCache(client, CacheConfig{TTL: ttl}), mr
}

func TestRedisResultsCache_GetSet(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t, 5*time.Minute)

	require.NoError(t, cache.Ping(ctx))

	_, ok, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, sampleResults(7)))
	assert.True(t, mr.Exists("churn:results:7"))

	got, ok, err := cache.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleResults(7), got)
}

func TestRedisResultsCache_TTL(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t, time.Minute)

	require.NoError(t, cache.Set(ctx, sampleResults(3)))
	assert.Equal(t, time.Minute, mr.TTL("churn:results:3"))

	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisResultsCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t, time.Minute)

	require.NoError(t, cache.Set(ctx, sampleResults(3)))
	require.NoError(t, cache.Invalidate(ctx, 3))

	assert.False(t, mr.Exists("churn:results:3"))
}

func TestRedisResultsCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t, time.Minute)

	require.NoError(t, mr.Set("churn:results:9", "not json"))

	_, ok, err := cache.Get(ctx, 9)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestRedisResultsCache_Unavailable(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t, time.Minute)
	mr.Close()

	_, _, err := cache.Get(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, cache.Ping(ctx))
}

func TestNewRedisClient(t *testing.T) {
	client := NewRedisClient(RedisOptions{Address: "localhost:6380", DB: 2})
	defer client.Close()

	opts := client.Options()
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 10, opts.PoolSize)
}
