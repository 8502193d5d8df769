package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skuld-io/skuld/internal/config"
	"github.com/skuld-io/skuld/internal/flag"
	"github.com/skuld-io/skuld/internal/logger"
	"github.com/skuld-io/skuld/internal/observability"
	"github.com/skuld-io/skuld/internal/validation"
)

const backendRedis = "redis"

// clearScanBatch is the COUNT hint for the SCAN used by Clear.
const clearScanBatch = 256

// Compile-time check to verify that RedisCache implements Service.
var _ Service = (*RedisCache)(nil)

// RedisCache implements Service on a shared Redis instance. Records are
// stored as JSON under namespaced keys, e.g. "skuld:flag:new-checkout".
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache wraps an established Redis client. TTL and key prefix come
// from the cache config; a zero TTL stores entries without expiry.
func NewRedisCache(client *redis.Client, cfg *config.CacheConfig) *RedisCache {
	validation.AssertNotNil(client, "redis client")
	validation.AssertNotNil(cfg, "cache config")
	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
		prefix: cfg.KeyPrefix,
	}
}

func (c *RedisCache) key(code string) string {
	return fmt.Sprintf("%s:%s", c.prefix, code)
}

// Get fetches and decodes a cached flag. Backend failures and undecodable
// payloads count as misses.
func (c *RedisCache) Get(ctx context.Context, code string) (*flag.Record, bool) {
	data, err := c.client.Get(ctx, c.key(code)).Bytes()
	if err == redis.Nil {
		observability.CacheMisses.WithLabelValues(backendRedis).Inc()
		return nil, false
	}
	if err != nil {
		c.degrade(ctx, "get", code, err)
		return nil, false
	}

	var rec flag.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		// Undecodable entries are dropped so the next write repairs them.
		c.degrade(ctx, "decode", code, err)
		c.client.Del(ctx, c.key(code))
		return nil, false
	}

	observability.CacheHits.WithLabelValues(backendRedis).Inc()
	return &rec, true
}

// Set caches a flag under its code with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, rec *flag.Record) bool {
	data, err := json.Marshal(rec)
	if err != nil {
		c.degrade(ctx, "encode", rec.Code, err)
		return false
	}

	if err := c.client.Set(ctx, c.key(rec.Code), data, c.ttl).Err(); err != nil {
		c.degrade(ctx, "set", rec.Code, err)
		return false
	}
	return true
}

// Delete drops a single flag from the cache.
func (c *RedisCache) Delete(ctx context.Context, code string) bool {
	if err := c.client.Del(ctx, c.key(code)).Err(); err != nil {
		c.degrade(ctx, "delete", code, err)
		return false
	}
	return true
}

// Clear drops every key in this cache's namespace. It uses SCAN instead of
// KEYS so a large namespace does not block the Redis event loop.
func (c *RedisCache) Clear(ctx context.Context) bool {
	var cursor uint64
	pattern := c.prefix + ":*"

	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, clearScanBatch).Result()
		if err != nil {
			c.degrade(ctx, "clear", pattern, err)
			return false
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.degrade(ctx, "clear", pattern, err)
				return false
			}
		}

		cursor = next
		if cursor == 0 {
			return true
		}
	}
}

// HealthCheck pings the Redis server.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// degrade records a failed cache operation. The caller falls through to the
// store, so this logs at WARN and feeds the error counter instead of
// propagating.
func (c *RedisCache) degrade(ctx context.Context, op, key string, err error) {
	observability.CacheErrors.WithLabelValues(backendRedis, op).Inc()
	logger.FromContext(ctx).Warn("cache operation degraded",
		slog.String("backend", backendRedis),
		slog.String("operation", op),
		slog.String("key", key),
		slog.Any("error", err),
	)
}
