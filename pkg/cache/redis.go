package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flsteven87/chatalyst-ai/pkg/models"
)

const redisKeyPrefix = "chatalyst:cache:"

// RedisCache stores entries in Redis as JSON values. TTL is delegated to
// Redis; LRU behavior comes from the server's own eviction policy. Redis
// failures are logged and treated as misses so the pipeline keeps working
// without the cache.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache wraps an already-connected Redis client.
func NewRedisCache(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger.Named("cache")}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.CacheEntry, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("Dropping undecodable cache entry", zap.Error(err))
		c.Invalidate(ctx, key)
		return nil, false
	}
	return &entry, true
}

func (c *RedisCache) Put(ctx context.Context, key string, entry models.CacheEntry, ttl time.Duration) {
	entry.Key = key
	entry.ExpiresAt = time.Now().Add(ttl)

	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("Cache entry not serializable", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, ttl).Err(); err != nil {
		c.logger.Warn("Cache write failed", zap.Error(err))
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		c.logger.Warn("Cache invalidation failed", zap.Error(err))
	}
}

// InvalidateAll removes every entry under the cache prefix. Other keys in the
// same Redis database are untouched.
func (c *RedisCache) InvalidateAll(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("Cache scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Cache invalidation failed", zap.Error(err))
	}
}
