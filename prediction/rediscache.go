package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const resultsKeyPrefix = "churn:results:"

// RedisResultsCache implements ResultsCache on Redis with JSON values.
type RedisResultsCache struct {
	client *redis.Client
	config CacheConfig
}

// RedisOptions configures NewRedisClient.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
}

// NewRedisClient creates a Redis client with the platform's pool settings.
func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         opts.Address,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// NewRedisResultsCache creates a cache on an existing client.
func NewRedisResultsCache(client *redis.Client, config CacheConfig) *RedisResultsCache {
	return &RedisResultsCache{client: client, config: config}
}

func resultsKey(uploadID int64) string {
	return fmt.Sprintf("%s%d", resultsKeyPrefix, uploadID)
}

func (c *RedisResultsCache) Get(ctx context.Context, uploadID int64) (*Results, bool, error) {
	data, err := c.client.Get(ctx, resultsKey(uploadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var results Results
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, false, fmt.Errorf("decode cached results: %w", err)
	}
	return &results, true, nil
}

func (c *RedisResultsCache) Set(ctx context.Context, results *Results) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := c.client.Set(ctx, resultsKey(results.UploadID), data, c.config.TTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *RedisResultsCache) Invalidate(ctx context.Context, uploadID int64) error {
	if err := c.client.Del(ctx, resultsKey(uploadID)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// Ping tests the Redis connection.
func (c *RedisResultsCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
