// Package cache stores successful resolutions in redis keyed by the cleaned link.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "unmark:result:"

// Cache is a JSON value cache with a fixed TTL.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New returns a cache. A ttl <= 0 defaults to one hour.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func key(link string) string { return keyPrefix + link }

// Get decodes the value cached for link into v. It reports false on a miss.
func (c *Cache) Get(ctx context.Context, link string, v any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key(link)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		// A value from an older layout is treated as a miss.
		_ = c.rdb.Del(ctx, key(link)).Err()
		return false, nil
	}
	return true, nil
}

// Set caches v for link.
func (c *Cache) Set(ctx context.Context, link string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, key(link), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops the entry for link.
func (c *Cache) Invalidate(ctx context.Context, link string) error {
	return c.rdb.Del(ctx, key(link)).Err()
}
