package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer c.Close()
	ctx := context.Background()

	now := time.UnixMilli(5_000_000)
	l := NewTokenBucketLimiter(c).WithClock(func() time.Time { return now })
	key := Key("alice", "send")

	for i := 0; i < 3; i++ {
		ok, _, err := l.Allow(ctx, key, 1, 3)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, rem, err := l.Allow(ctx, key, 1, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), rem)

	now = now.Add(time.Second)
	ok, _, err = l.Allow(ctx, key, 1, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	// 其他用户互不影响
	ok, _, err = l.Allow(ctx, Key("bob", "send"), 1, 3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTokenBucketFailOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer c.Close()
	mr.Close()

	ok, _, err := NewTokenBucketLimiter(c).Allow(context.Background(), Key("a", "send"), 1, 1)
	assert.Error(t, err)
	assert.True(t, ok)
}

func TestTokenBucketDisabled(t *testing.T) {
	ok, _, err := NewTokenBucketLimiter(nil).Allow(context.Background(), "k", 0, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}
