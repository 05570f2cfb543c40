package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Lookup returns the cached value for key decoded into T.
// A payload that does not decode into T is reported as a miss.
func Lookup[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var v T
	if c == nil {
		return v, false
	}
	raw, ok := c.Get(ctx, key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		c.metrics.fault(OpGet)
		c.logger.Warn().Ctx(ctx).Err(err).Str("key", key).Msg("cache payload does not match requested type")
		var zero T
		return zero, false
	}
	return v, true
}

// WithCache memoizes read under key with the default TTL.
// See WithCacheTTL.
func WithCache[T any](ctx context.Context, c *Cache, key string, read func(context.Context) (T, error)) (T, error) {
	return WithCacheTTL(ctx, c, key, 0, read)
}

// WithCacheTTL returns the cached value for key when a valid entry exists,
// without calling read. On a miss it calls read, stores the result for ttl
// and returns it. Errors from read are returned unchanged and nothing is
// cached. A nil Cache always calls read.
//
// Unless the Cache was built WithSingleflight, concurrent misses on the same
// key each call read and the last one to finish wins the entry. The store
// after read ignores cancellation of ctx, so an abandoned call still
// populates the cache.
func WithCacheTTL[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	read func(context.Context) (T, error),
) (T, error) {
	if c == nil {
		return read(ctx)
	}

	if v, ok := Lookup[T](ctx, c, key); ok {
		return v, nil
	}

	if !c.dedupe {
		return load(ctx, c, key, ttl, read)
	}

	shared, err, _ := c.flight.Do(key, func() (any, error) {
		v, loadErr := load(ctx, c, key, ttl, read)
		return v, loadErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if v, ok := shared.(T); ok {
		return v, nil
	}
	// Callers disagreeing on T for one key fall back to their own read.
	return load(ctx, c, key, ttl, read)
}

// load runs read and stores its result.
func load[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	read func(context.Context) (T, error),
) (T, error) {
	gen := c.snapshot(key)

	v, err := read(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if c.guard && !c.current(key, gen) {
		c.logger.Debug().Ctx(ctx).Str("key", key).Msg("key invalidated during read, result not cached")
		return v, nil
	}

	c.SetWithTTL(context.WithoutCancel(ctx), key, v, ttl)
	return v, nil
}
