package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCatalogKeyPrefix namespaces cached catalogs in Redis
const DefaultCatalogKeyPrefix = "dropship:catalog:"

// RedisTTLCache is a byte cache with per-entry expiration backed by Redis
// This is suitable for distributed deployments where multiple API instances
// should share aggregation results
type RedisTTLCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisTTLCacheWithClient creates a cache with an existing Redis client
func NewRedisTTLCacheWithClient(client redis.UniversalClient, keyPrefix string) *RedisTTLCache {
	if keyPrefix == "" {
		keyPrefix = DefaultCatalogKeyPrefix
	}
	return &RedisTTLCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the cached value; ok is false on a miss
func (c *RedisTTLCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return data, true, nil
}

// Set stores value under key for ttl. A non-positive ttl removes the key.
func (c *RedisTTLCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return c.Delete(ctx, key)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key
func (c *RedisTTLCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisTTLCache) Close() error {
	return c.client.Close()
}
