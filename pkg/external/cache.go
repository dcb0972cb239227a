package external

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medgen-mcp-server/internal/domain"
)

// ReportCache stores raw NCBI responses keyed by request.
type ReportCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// RedisReportCache is a ReportCache backed by Redis.
type RedisReportCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
	prefix     string
}

// NewRedisReportCache connects to the configured Redis server.
func NewRedisReportCache(ctx context.Context, config domain.CacheConfig) (*RedisReportCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisReportCacheFromClient(client, config.DefaultTTL), nil
}

// NewRedisReportCacheFromClient wraps an existing client.
func NewRedisReportCacheFromClient(client *redis.Client, ttl time.Duration) *RedisReportCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisReportCache{redis: client, defaultTTL: ttl, prefix: "medgen:"}
}

// Get returns a cached value. A miss is ("", false, nil).
func (c *RedisReportCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.redis.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return val, true, nil
}

// Set stores a value for the default TTL.
func (c *RedisReportCache) Set(ctx context.Context, key, value string) error {
	if err := c.redis.Set(ctx, c.prefix+key, value, c.defaultTTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisReportCache) Close() error {
	return c.redis.Close()
}
