package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"caseworker-tasks/internal/core/config"
)

// DefaultLoadTimeout bounds a shared load once it no longer follows the
// caller's context.
const DefaultLoadTimeout = 5 * time.Second

// Cache is a read-through byte cache on Redis. Redis failures degrade to
// calling the loader; they are never returned to the caller.
type Cache struct {
	RDB    *redis.Client
	Prefix string
	// LoadTimeout defaults to DefaultLoadTimeout.
	LoadTimeout time.Duration
	sf          singleflight.Group
}

func New(addr, pass string, db int) *Cache {
	return &Cache{
		RDB: redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     pass,
			DB:           db,
			MaxRetries:   1,
			DialTimeout:  time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		}),
		Prefix:      "cwt:",
		LoadTimeout: DefaultLoadTimeout,
	}
}

// FromConfig returns nil when no Redis address is configured.
func FromConfig(c config.Redis) *Cache {
	if c.Addr == "" {
		return nil
	}
	return New(c.Addr, c.Password, c.DB)
}

func (c *Cache) key(k string) string { return c.Prefix + k }

func (c *Cache) loadTimeout() time.Duration {
	if c.LoadTimeout > 0 {
		return c.LoadTimeout
	}
	return DefaultLoadTimeout
}

// GetOrLoad returns the cached bytes for key or runs load and stores the
// result for ttl. Concurrent misses share one load. The shared load is
// detached from the first caller's cancellation, so one caller giving up
// does not fail the others; a caller that gives up gets its ctx error.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	full := c.key(key)
	if b, err := c.RDB.Get(ctx, full).Bytes(); err == nil {
		return b, nil
	}
	ch := c.sf.DoChan(full, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout())
		defer cancel()
		b, e := load(lctx)
		if e != nil {
			return nil, e
		}
		_ = c.RDB.Set(lctx, full, b, ttl).Err()
		return b, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]byte), nil
	}
}

func genKey(k string) string { return "gen:" + k }

// Generation is the current generation of k, 0 before the first Bump.
// Callers fold it into their cache keys; bumping it orphans every entry
// stored under an older generation, including ones written late by loads
// that started before the bump.
func (c *Cache) Generation(ctx context.Context, k string) (int64, error) {
	n, err := c.RDB.Get(ctx, c.key(genKey(k))).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *Cache) Bump(ctx context.Context, k string) error {
	return c.RDB.Incr(ctx, c.key(genKey(k))).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.RDB.Del(ctx, full...).Err()
}

func (c *Cache) Ping(ctx context.Context) error { return c.RDB.Ping(ctx).Err() }

func (c *Cache) Close() error { return c.RDB.Close() }
