package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type board struct {
	Names []string `json:"names"`
}

func newCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, "rollcall:stats:", ttl), mr
}

func TestRememberCachesUntilInvalidated(t *testing.T) {
	c, mr := newCache(t, time.Minute)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (board, error) {
		calls++
		return board{Names: []string{"ada"}}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := Remember(ctx, c, "leaderboard", load)
		require.NoError(t, err)
		assert.Equal(t, []string{"ada"}, v.Names)
	}
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("rollcall:stats:0:leaderboard"))

	c.Invalidate(ctx)
	assert.False(t, mr.Exists("rollcall:stats:0:leaderboard"))
	_, err := Remember(ctx, c, "leaderboard", load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	mr.FastForward(2 * time.Minute)
	_, err = Remember(ctx, c, "leaderboard", load)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRememberDiscardsLoadRacingInvalidate(t *testing.T) {
	c, mr := newCache(t, time.Minute)
	ctx := context.Background()
	calls := 0
	load := func(ctx context.Context) (board, error) {
		calls++
		if calls == 1 {
			// A write lands while the first load is still computing.
			c.Invalidate(ctx)
			return board{Names: []string{"stale"}}, nil
		}
		return board{Names: []string{"fresh"}}, nil
	}

	v, err := Remember(ctx, c, "dashboard", load)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, v.Names)

	v, err = Remember(ctx, c, "dashboard", load)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, v.Names)
	assert.Equal(t, 2, calls)
	assert.True(t, mr.Exists("rollcall:stats:1:dashboard"))
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	c, mr := newCache(t, time.Minute)
	boom := errors.New("boom")
	_, err := Remember(context.Background(), c, "k", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("rollcall:stats:0:k"))
}

func TestRememberFallsBackWhenRedisIsDown(t *testing.T) {
	c, mr := newCache(t, time.Minute)
	mr.Close()
	v, err := Remember(context.Background(), c, "k", func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	var disabled *Cache
	v, err = Remember(context.Background(), disabled, "k", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	disabled.Invalidate(context.Background())
}
