// Package scorecache caches leaderboard results in Redis for the query API.
// A cache miss or failure is never an error for the caller; the pipeline
// recomputes and the cache is repopulated on the next write.
package scorecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
)

const keyPrefix = "crtscope:" // namespaces cache entries on a shared Redis

var _ contract.ScoreCache = &RedisCache{}

// RedisCache is a ScoreCache backed by Redis.
type RedisCache struct {
	client *redis.Client
}

// New connects to Redis at addr and verifies the connection.
func New(ctx context.Context, addr string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisCache{client: client}, nil
}

// GetLeaderboard returns the cached leaderboard for a key. A miss, an
// expired entry or a corrupt payload all come back as (nil, false).
func (c *RedisCache) GetLeaderboard(ctx context.Context, key string) ([]schema.ScoreResult, bool) {
	data, err := c.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		contract.LogWarn("cache read failed", err)
		return nil, false
	}

	var results []schema.ScoreResult
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		contract.LogWarn("cache entry corrupt, ignoring", err)
		return nil, false
	}
	return results, true
}

// SetLeaderboard stores the leaderboard under a key with a TTL.
func (c *RedisCache) SetLeaderboard(ctx context.Context, key string, results []schema.ScoreResult, ttl time.Duration) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal leaderboard: %w", err)
	}
	return c.client.Set(ctx, keyPrefix+key, data, ttl).Err()
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
