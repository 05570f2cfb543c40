package cache

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// redisScanCount is the COUNT hint passed to SCAN.
const redisScanCount = 100

// RedisStorage is a Redis-backed Storage shared by every process pointing at
// the same server. Errors are returned as-is; the Cache treats them as misses.
type RedisStorage struct {
	rdb *redis.Client
}

// NewRedisStorage creates a new Redis-backed storage.
func NewRedisStorage(addr, password string, db int) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStorage{rdb: rdb}
}

// Get retrieves the bytes stored under key.
func (r *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return val, nil
}

// Set stores val under key with no server-side expiry; TTL is enforced by the
// Cache on read.
func (r *RedisStorage) Set(ctx context.Context, key string, val []byte) error {
	if key == "" {
		return ErrInvalidCacheKey
	}
	return r.rdb.Set(ctx, key, val, 0).Err()
}

// Delete removes key.
func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// Keys scans for keys starting with prefix.
func (r *RedisStorage) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.rdb.Scan(ctx, 0, escapeGlob(prefix)+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Ping checks the Redis connection.
func (r *RedisStorage) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis client.
func (r *RedisStorage) Close() error {
	return r.rdb.Close()
}

// escapeGlob escapes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
