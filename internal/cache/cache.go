// Package cache memoizes expensive read models in Redis as JSON.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON values under a common prefix. A nil *Cache or a Redis
// failure degrades to computing the value on every call.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New creates a cache; ttl <= 0 disables caching.
func New(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// genKey holds the generation number that prefixes every entry key.
const genKey = "gen"

// entryKey resolves key under the current generation. Invalidate bumps the
// generation, so a load that finishes after it writes to a key nobody reads.
func (c *Cache) entryKey(ctx context.Context, key string) (string, error) {
	gen, err := c.client.Get(ctx, c.prefix+genKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return c.prefix + strconv.FormatInt(gen, 10) + ":" + key, nil
}

// Remember returns the cached value for key, or runs load and stores its result.
func Remember[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	if !c.enabled() {
		return load(ctx)
	}
	full, err := c.entryKey(ctx, key)
	if err != nil {
		slog.Warn("cache generation read failed", "key", key, "error", err)
		return load(ctx)
	}
	raw, err := c.client.Get(ctx, full).Bytes()
	switch {
	case err == nil:
		var v T
		if uerr := json.Unmarshal(raw, &v); uerr == nil {
			return v, nil
		}
		slog.Warn("cache entry unreadable", "key", full)
	case !errors.Is(err, redis.Nil):
		slog.Warn("cache read failed", "key", full, "error", err)
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if raw, err := json.Marshal(v); err == nil {
		if err := c.client.Set(ctx, full, raw, c.ttl).Err(); err != nil {
			slog.Warn("cache write failed", "key", full, "error", err)
		}
	}
	return v, nil
}

// Invalidate starts a new generation and drops the entries of older ones.
func (c *Cache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	gen := c.prefix + genKey
	if err := c.client.Incr(ctx, gen).Err(); err != nil {
		slog.Warn("cache invalidate failed", "prefix", c.prefix, "error", err)
		return
	}
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		if k := iter.Val(); k != gen {
			keys = append(keys, k)
		}
	}
	if err := iter.Err(); err != nil {
		slog.Warn("cache scan failed", "prefix", c.prefix, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("cache cleanup failed", "prefix", c.prefix, "error", err)
	}
}
