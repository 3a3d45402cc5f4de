package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/estivenmendezr98/TAREAS/internal/config"
	"github.com/estivenmendezr98/TAREAS/internal/logger"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrCacheDown = errors.New("cache unavailable")
	ErrLockHeld  = errors.New("lock held by another owner")
)

// releaseScript deletes a lock only if the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type CacheConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Breaker      *CircuitBreakerConfig
}

func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// CacheConfigFrom maps the application's redis section.
func CacheConfigFrom(cfg *config.Config) *CacheConfig {
	c := DefaultCacheConfig()
	c.Addr = cfg.GetRedisAddr()
	c.Password = cfg.Redis.Password
	c.DB = cfg.Redis.DB
	if cfg.Redis.PoolSize > 0 {
		c.PoolSize = cfg.Redis.PoolSize
	}
	if cfg.Redis.MinIdleConns > 0 {
		c.MinIdleConns = cfg.Redis.MinIdleConns
	}
	if cfg.Redis.MaxRetries > 0 {
		c.MaxRetries = cfg.Redis.MaxRetries
	}
	if cfg.Redis.DialTimeout > 0 {
		c.DialTimeout = cfg.Redis.DialTimeout
	}
	if cfg.Redis.ReadTimeout > 0 {
		c.ReadTimeout = cfg.Redis.ReadTimeout
	}
	if cfg.Redis.WriteTimeout > 0 {
		c.WriteTimeout = cfg.Redis.WriteTimeout
	}
	return c
}

// RedisCache stores JSON values in Redis. Every call goes through a circuit
// breaker so an unreachable server fails fast with ErrCacheDown.
type RedisCache struct {
	client  *redis.Client
	breaker *CircuitBreaker
}

func NewRedisCache(config *CacheConfig) *RedisCache {
	if config == nil {
		config = DefaultCacheConfig()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	breakerCfg := DefaultCircuitBreakerConfig()
	if config.Breaker != nil {
		copied := *config.Breaker
		breakerCfg = &copied
	}
	if breakerCfg.OnStateChange == nil {
		addr := config.Addr
		breakerCfg.OnStateChange = func(from, to CircuitBreakerState) {
			logger.Warn("redis circuit breaker changed state",
				logger.F("addr", addr),
				logger.F("from", from.String()),
				logger.F("to", to.String()),
			)
		}
	}

	return &RedisCache{
		client:  rdb,
		breaker: NewCircuitBreaker(breakerCfg),
	}
}

// Client exposes the underlying connection for the job queue.
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

func (r *RedisCache) Breaker() *CircuitBreaker {
	return r.breaker
}

// do runs fn through the breaker. A missing key is a normal answer, not a
// failure, so it never trips the breaker.
func (r *RedisCache) do(fn func() error) error {
	missed := false
	err := r.breaker.Execute(func() error {
		err := fn()
		if errors.Is(err, redis.Nil) {
			missed = true
			return nil
		}
		return err
	})
	switch {
	case errors.Is(err, ErrCircuitBreakerOpen):
		return fmt.Errorf("%w: %v", ErrCacheDown, err)
	case err != nil:
		return err
	case missed:
		return ErrCacheMiss
	default:
		return nil
	}
}

func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return r.do(func() error {
		return r.client.Set(ctx, key, data, ttl).Err()
	})
}

func (r *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	var data []byte
	err := r.do(func() error {
		var err error
		data, err = r.client.Get(ctx, key).Bytes()
		return err
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.do(func() error {
		return r.client.Del(ctx, keys...).Err()
	})
}

// DeletePattern removes every key matching a glob, walking the keyspace with
// SCAN rather than KEYS.
func (r *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	return r.do(func() error {
		iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
		var batch []string
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == 100 {
				if err := r.client.Del(ctx, batch...).Err(); err != nil {
					return err
				}
				batch = batch[:0]
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(batch) > 0 {
			return r.client.Del(ctx, batch...).Err()
		}
		return nil
	})
}

func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	var n int64
	err := r.do(func() error {
		var err error
		n, err = r.client.Exists(ctx, key).Result()
		return err
	})
	return n > 0, err
}

// AcquireLock takes key for ttl and returns the token needed to release it.
// It returns ErrLockHeld when someone else owns the key.
func (r *RedisCache) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	var acquired bool
	err = r.do(func() error {
		var err error
		acquired, err = r.client.SetNX(ctx, key, token.String(), ttl).Result()
		return err
	})
	if err != nil {
		return "", err
	}
	if !acquired {
		return "", ErrLockHeld
	}
	return token.String(), nil
}

func (r *RedisCache) ReleaseLock(ctx context.Context, key, token string) error {
	return r.do(func() error {
		return releaseScript.Run(ctx, r.client, []string{key}, token).Err()
	})
}

// Ping satisfies monitoring.HealthChecker. It bypasses the breaker so the
// probe reports the real server state.
func (r *RedisCache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Stats() map[string]interface{} {
	poolStats := r.client.PoolStats()
	return map[string]interface{}{
		"breaker":       r.breaker.GetStats(),
		"pool_hits":     poolStats.Hits,
		"pool_misses":   poolStats.Misses,
		"pool_timeouts": poolStats.Timeouts,
		"pool_total":    poolStats.TotalConns,
		"pool_idle":     poolStats.IdleConns,
		"pool_stale":    poolStats.StaleConns,
	}
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
