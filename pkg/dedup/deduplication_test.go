package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	d := NewDeduplicator(rdb, time.Hour)
	ctx := context.Background()

	ok, err := d.Claim(ctx, "job", "r1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.Claim(ctx, "job", "r1")
	require.NoError(t, err)
	assert.False(t, ok)

	seen, err := d.Seen(ctx, "job", "r1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, d.Release(ctx, "job", "r1"))
	ok, err = d.Claim(ctx, "job", "r1")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Hour)
	seen, err = d.Seen(ctx, "job", "r1")
	require.NoError(t, err)
	assert.False(t, seen)
}
