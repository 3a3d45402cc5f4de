package cache

import (
	"context"
	"errors"
	"time"

	"github.com/estivenmendezr98/TAREAS/internal/logger"
)

// Cache is the read-through store used by services.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// MultiLevelCache keeps a short-lived local copy in front of an optional
// Redis cache. Redis failures degrade to misses; they never fail a request.
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      *RedisCache
	l1TTL   time.Duration
	metrics *CacheMetrics
	log     *logger.Logger
}

// NewMultiLevelCache accepts a nil RedisCache for single-process setups.
func NewMultiLevelCache(redisCache *RedisCache, l1TTL time.Duration) *MultiLevelCache {
	if l1TTL <= 0 {
		l1TTL = time.Minute
	}
	return &MultiLevelCache{
		l1:      NewMemoryCache(),
		l2:      redisCache,
		l1TTL:   l1TTL,
		metrics: NewCacheMetrics(),
		log:     logger.Default().With(logger.F("component", "cache")),
	}
}

func (c *MultiLevelCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := c.l1.Get(key, dest); err == nil {
		c.metrics.RecordL1Hit()
		return nil
	}

	if c.l2 != nil {
		err := c.l2.Get(ctx, key, dest)
		switch {
		case err == nil:
			c.metrics.RecordL2Hit()
			c.l1.Set(key, dest, c.l1TTL)
			return nil
		case !errors.Is(err, ErrCacheMiss):
			c.metrics.RecordError()
			c.log.Warn("l2 cache read failed", logger.F("key", key), logger.Err(err))
		}
	}

	c.metrics.RecordMiss()
	return ErrCacheMiss
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.l1.Set(key, value, l1TTL); err != nil {
		return err
	}
	c.metrics.RecordSet()

	if c.l2 != nil {
		if err := c.l2.Set(ctx, key, value, ttl); err != nil {
			c.metrics.RecordError()
			c.log.Warn("l2 cache write failed", logger.F("key", key), logger.Err(err))
		}
	}
	return nil
}

func (c *MultiLevelCache) Delete(ctx context.Context, keys ...string) error {
	c.l1.Delete(keys...)
	c.metrics.RecordDelete()
	if c.l2 != nil {
		return c.l2.Delete(ctx, keys...)
	}
	return nil
}

func (c *MultiLevelCache) DeletePattern(ctx context.Context, pattern string) error {
	c.l1.DeletePattern(pattern)
	c.metrics.RecordDelete()
	if c.l2 != nil {
		return c.l2.DeletePattern(ctx, pattern)
	}
	return nil
}

func (c *MultiLevelCache) Metrics() *CacheMetrics {
	return c.metrics
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"l1_entries": c.l1.Len(),
		"metrics":    c.metrics.Snapshot(),
		"hit_rate":   c.metrics.HitRate(),
	}
	if c.l2 != nil {
		stats["l2"] = c.l2.Stats()
	}
	return stats
}
