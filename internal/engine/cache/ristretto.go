package cache

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
)

// ErrRejected is returned when ristretto's admission policy drops a write.
var ErrRejected = errors.New("write rejected by admission policy")

// RistrettoStorage is an in-process, cost-bounded Storage backed by ristretto.
// Ristretto cannot enumerate its contents, so a key index is kept alongside
// for prefix scans. Keys evicted by ristretto may linger in the index until
// the next Keys call notices they are gone.
type RistrettoStorage struct {
	rc *ristretto.Cache[string, []byte]

	mu    sync.Mutex
	index map[string]struct{}
}

// NewRistrettoStorage creates a storage holding at most maxCost entries
// (each entry has a cost of 1).
func NewRistrettoStorage(maxCost int64) (*RistrettoStorage, error) {
	rc, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &RistrettoStorage{
		rc:    rc,
		index: make(map[string]struct{}),
	}, nil
}

// Get retrieves a copy of the bytes stored under key.
func (r *RistrettoStorage) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := r.rc.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

// Set stores val under key and waits for the write buffer to drain so the
// value is visible to the next Get.
func (r *RistrettoStorage) Set(_ context.Context, key string, val []byte) error {
	if key == "" {
		return ErrInvalidCacheKey
	}
	if !r.rc.Set(key, bytes.Clone(val), 1) {
		return ErrRejected
	}
	r.rc.Wait()

	r.mu.Lock()
	r.index[key] = struct{}{}
	r.mu.Unlock()
	return nil
}

// Delete removes key.
func (r *RistrettoStorage) Delete(_ context.Context, key string) error {
	r.rc.Del(key)
	r.rc.Wait()

	r.mu.Lock()
	delete(r.index, key)
	r.mu.Unlock()
	return nil
}

// Keys returns the indexed keys starting with prefix that are still present.
func (r *RistrettoStorage) Keys(_ context.Context, prefix string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.index))
	for k := range r.index {
		if _, ok := r.rc.Get(k); !ok {
			delete(r.index, k)
			continue
		}
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close stops ristretto's background goroutines.
func (r *RistrettoStorage) Close() error {
	r.rc.Close()
	return nil
}
