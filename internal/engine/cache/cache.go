package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Invalidator is the capability handed to mutation call sites so they can
// evict the reads their writes affect.
type Invalidator interface {
	InvalidateGroup(ctx context.Context, g Group)
	Clear(ctx context.Context, key string)
}

// NopInvalidator is the Invalidator used when no cache is configured.
type NopInvalidator struct{}

// InvalidateGroup does nothing.
func (NopInvalidator) InvalidateGroup(context.Context, Group) {}

// Clear does nothing.
func (NopInvalidator) Clear(context.Context, string) {}

// Cache is a TTL cache over a Storage medium.
//
// Every storage or serialization failure is logged and swallowed: a failing
// medium degrades to cache misses and never surfaces an error to callers.
// Expired entries are purged lazily when read; there is no background sweep.
type Cache struct {
	storage    Storage
	prefix     string
	defaultTTL time.Duration
	now        func() time.Time
	logger     zerolog.Logger
	metrics    *Metrics

	// dedupe collapses concurrent WithCache loads of one key.
	dedupe bool
	flight singleflight.Group

	// guard drops WithCache results whose key was cleared during the read.
	guard bool
	genMu sync.Mutex
	gens  map[string]uint64
	epoch uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithPrefix sets the reserved key namespace. ClearAll only touches keys under it.
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// WithDefaultTTL sets the TTL used by Set and WithCache. Non-positive values are ignored.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithClock replaces time.Now, letting tests advance time deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger used for hits, misses and swallowed faults.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithMetrics attaches prometheus counters.
func WithMetrics(m *Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithSingleflight makes concurrent WithCache misses on the same key share a
// single read instead of each calling the read function.
func WithSingleflight() Option {
	return func(c *Cache) { c.dedupe = true }
}

// WithGenerationGuard makes WithCache skip storing a result when its key was
// cleared or invalidated while the read was in flight. Generations are kept
// in process memory, so clears made by other processes sharing the storage
// are not observed.
func WithGenerationGuard() Option {
	return func(c *Cache) { c.guard = true }
}

// New creates a Cache over storage.
func New(storage Storage, opts ...Option) *Cache {
	c := &Cache{
		storage:    storage,
		prefix:     DefaultPrefix,
		defaultTTL: DefaultTTL,
		now:        time.Now,
		logger:     zerolog.Nop(),
		gens:       make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prefix returns the reserved key namespace.
func (c *Cache) Prefix() string {
	return c.prefix
}

// DefaultTTL returns the TTL applied when none is given.
func (c *Cache) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Storage returns the underlying medium.
func (c *Cache) Storage() Storage {
	return c.storage
}

// Set stores payload under key with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, payload any) {
	c.SetWithTTL(ctx, key, payload, c.defaultTTL)
}

// SetWithTTL stores payload under key, replacing any previous entry.
// A non-positive ttl means the default TTL.
func (c *Cache) SetWithTTL(ctx context.Context, key string, payload any, ttl time.Duration) {
	if key == "" {
		c.logger.Warn().Ctx(ctx).Msg("cache set with empty key ignored")
		return
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		c.metrics.fault(OpSet)
		c.logger.Warn().Ctx(ctx).Err(err).Str("key", key).Msg("cache payload not serializable")
		return
	}

	data, err := encodeEntry(NewCacheEntry(raw, c.now(), ttl))
	if err != nil {
		c.metrics.fault(OpSet)
		c.logger.Warn().Ctx(ctx).Err(err).Str("key", key).Msg("cache entry not serializable")
		return
	}

	if err = c.storage.Set(ctx, c.prefix+key, data); err != nil {
		c.metrics.fault(OpSet)
		c.logger.Warn().Ctx(ctx).Err(err).Str("key", key).Msg("cache write failed")
		return
	}

	c.logger.Debug().Ctx(ctx).Str("key", key).Dur("ttl", ttl).Msg("cache set")
}

// Get returns the payload of a valid entry for key.
// The boolean is false on a miss, an expired entry, or any storage fault.
// An expired or undecodable entry is deleted before reporting the miss.
func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	entry, ok := c.lookup(ctx, key)
	if !ok {
		return nil, false
	}
	return entry.Payload, true
}

// EntryInfo describes a valid cache entry.
type EntryInfo struct {
	Key       string
	StoredAt  time.Time
	TTL       time.Duration
	Age       time.Duration
	Remaining time.Duration
	Size      int
}

// Stat returns metadata for the valid entry under key. It follows the same
// rules as Get: expired and corrupt entries are purged and reported absent.
func (c *Cache) Stat(ctx context.Context, key string) (EntryInfo, bool) {
	entry, ok := c.lookup(ctx, key)
	if !ok {
		return EntryInfo{}, false
	}
	now := c.now()
	return EntryInfo{
		Key:       key,
		StoredAt:  time.UnixMilli(entry.StoredAt),
		TTL:       time.Duration(entry.TTL) * time.Millisecond,
		Age:       entry.Age(now),
		Remaining: entry.TimeUntilExpiration(now),
		Size:      len(entry.Payload),
	}, true
}

// lookup loads and validates the entry under key, purging it when expired or
// undecodable.
func (c *Cache) lookup(ctx context.Context, key string) (*CacheEntry, bool) {
	if key == "" {
		return nil, false
	}

	data, err := c.storage.Get(ctx, c.prefix+key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.metrics.fault(OpGet)
			c.logger.Warn().Ctx(ctx).Err(err).Str("key", key).Msg("cache read failed")
		}
		c.metrics.miss()
		c.logger.Debug().Ctx(ctx).Str("key", key).Msg("cache miss")
		return nil, false
	}

	entry, err := decodeEntry(data)
	if err != nil {
		c.metrics.fault(OpGet)
		c.metrics.miss()
		c.logger.Warn().Ctx(ctx).Err(err).Str("key", key).Msg("cache entry corrupted, purging")
		c.remove(ctx, key)
		return nil, false
	}

	if entry.IsExpired(c.now()) {
		c.metrics.expired()
		c.metrics.miss()
		c.logger.Debug().Ctx(ctx).Str("key", key).Msg("cache entry expired")
		c.remove(ctx, key)
		return nil, false
	}

	c.metrics.hit()
	c.logger.Debug().Ctx(ctx).Str("key", key).Msg("cache hit")
	return entry, true
}

// Clear removes the entry for key. Absent keys and storage faults are ignored.
func (c *Cache) Clear(ctx context.Context, key string) {
	if key == "" {
		return
	}
	c.bump(key)
	c.remove(ctx, key)
}

// ClearAll removes every entry under the cache prefix, leaving other keys in
// the storage medium untouched.
func (c *Cache) ClearAll(ctx context.Context) {
	if c.guard {
		c.genMu.Lock()
		c.epoch++
		c.genMu.Unlock()
	}

	keys, err := c.storage.Keys(ctx, c.prefix)
	if err != nil {
		c.metrics.fault(OpKeys)
		c.logger.Warn().Ctx(ctx).Err(err).Msg("cache key listing failed")
		return
	}

	for _, k := range keys {
		if delErr := c.storage.Delete(ctx, k); delErr != nil {
			c.metrics.fault(OpDelete)
			c.logger.Warn().Ctx(ctx).Err(delErr).Str("key", k).Msg("cache delete failed")
		}
	}
	c.logger.Debug().Ctx(ctx).Int("count", len(keys)).Msg("cache cleared")
}

// InvalidateGroup clears exactly the keys of g. Unknown groups are ignored.
func (c *Cache) InvalidateGroup(ctx context.Context, g Group) {
	keys, ok := GroupKeys(g)
	if !ok {
		c.logger.Warn().Ctx(ctx).Str("group", string(g)).Msg("unknown invalidation group")
		return
	}
	for _, k := range keys {
		c.Clear(ctx, k)
	}
	c.metrics.invalidated(g)
	c.logger.Debug().Ctx(ctx).Str("group", string(g)).Strs("keys", keys).Msg("cache group invalidated")
}

// remove deletes key from storage, logging failures.
func (c *Cache) remove(ctx context.Context, key string) {
	if err := c.storage.Delete(ctx, c.prefix+key); err != nil {
		c.metrics.fault(OpDelete)
		c.logger.Warn().Ctx(ctx).Err(err).Str("key", key).Msg("cache delete failed")
	}
}

// generation identifies the invalidation state of a key.
type generation struct {
	epoch uint64
	gen   uint64
}

// snapshot records the current generation of key.
func (c *Cache) snapshot(key string) generation {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return generation{epoch: c.epoch, gen: c.gens[key]}
}

// current reports whether key is still at generation g.
func (c *Cache) current(key string, g generation) bool {
	return c.snapshot(key) == g
}

// bump advances the generation of key when the guard is on.
func (c *Cache) bump(key string) {
	if !c.guard {
		return
	}
	c.genMu.Lock()
	c.gens[key]++
	c.genMu.Unlock()
}
