// Package dedup marks work items as handled so redelivered jobs are skipped.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator records handled ids in redis under unmark:<kind>:<id>.
type Deduplicator struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDeduplicator returns a deduplicator. A ttl <= 0 defaults to 48 hours.
func NewDeduplicator(rdb *redis.Client, ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &Deduplicator{rdb: rdb, ttl: ttl}
}

func key(kind, id string) string { return fmt.Sprintf("unmark:%s:%s", kind, id) }

// Claim atomically marks id as taken. It reports false when another
// delivery already claimed it.
func (d *Deduplicator) Claim(ctx context.Context, kind, id string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, key(kind, id), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup claim: %w", err)
	}
	return ok, nil
}

// Release drops a claim so the id can be processed again.
func (d *Deduplicator) Release(ctx context.Context, kind, id string) error {
	return d.rdb.Del(ctx, key(kind, id)).Err()
}

// Seen reports whether id was claimed.
func (d *Deduplicator) Seen(ctx context.Context, kind, id string) (bool, error) {
	n, err := d.rdb.Exists(ctx, key(kind, id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
