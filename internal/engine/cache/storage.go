package cache

import (
	"context"
	"errors"
)

// Common storage errors.
var (
	ErrNotFound        = errors.New("cache entry not found")
	ErrInvalidCacheKey = errors.New("cache key cannot be empty")
)

// Storage is the persistence medium holding cache records.
//
// Implementations are keyed by the fully prefixed storage key and treat values
// as opaque bytes. They must be safe for concurrent use. Get returns
// ErrNotFound when the key is absent; Delete of an absent key is not an error.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists every stored key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
