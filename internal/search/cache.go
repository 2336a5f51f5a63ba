package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"soundcrate/internal/config"
	"soundcrate/internal/models"
)

const cacheKeyPrefix = "search:"

// Cache is a Redis-backed read-through cache for search responses. A cache
// failure is never an error: lookups just miss and writes are dropped.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache connects to the configured Redis instance.
func NewCache(ctx context.Context, cfg *config.Config) (*Cache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis parse url error: %w", err)
	}

	opts.ConnMaxLifetime = 1 * time.Hour
	opts.ConnMaxIdleTime = 30 * time.Minute

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect error: %w", err)
	}

	return &Cache{client: client, ttl: cfg.SearchCacheTTL}, nil
}

// Get returns the cached descriptors for query, if present.
func (c *Cache) Get(ctx context.Context, query string) ([]models.SoundDescriptor, bool) {
	data, err := c.client.Get(ctx, cacheKeyPrefix+query).Bytes()
	if err != nil {
		return nil, false
	}

	var sounds []models.SoundDescriptor
	if err := json.Unmarshal(data, &sounds); err != nil {
		return nil, false
	}
	return sounds, true
}

// Set stores the descriptors for query with the configured TTL.
func (c *Cache) Set(ctx context.Context, query string, sounds []models.SoundDescriptor) {
	data, err := json.Marshal(sounds)
	if err != nil {
		return
	}
	c.client.Set(ctx, cacheKeyPrefix+query, data, c.ttl)
}

// HealthCheck verifies Redis connectivity.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
