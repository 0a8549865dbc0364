// Package ratelimit implements a redis fixed-window request limiter.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "unmark:ratelimit:"

// Limiter admits at most Limit requests per Window for each key.
type Limiter struct {
	rdb    *redis.Client
	Limit  int
	Window time.Duration
}

func New(rdb *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, Limit: limit, Window: window}
}

// Allow counts one request for key and reports whether it fits the window.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.Limit <= 0 {
		return true, nil
	}
	bucket := time.Now().UnixNano() / int64(l.Window)
	k := fmt.Sprintf("%s%s:%d", keyPrefix, key, bucket)

	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.Expire(ctx, k, l.Window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit: %w", err)
	}
	return incr.Val() <= int64(l.Limit), nil
}
