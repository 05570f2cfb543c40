package cache

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
)

// Op names a storage operation. It labels storage fault metrics and selects
// which operation a MemoryStorage fault applies to.
type Op string

// Storage operations.
const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpDelete Op = "delete"
	OpKeys   Op = "keys"
)

// MemoryStorage is a map-backed Storage. It lives as long as the process and
// is the default medium for tests and for the "memory" backend.
type MemoryStorage struct {
	mu     sync.RWMutex
	data   map[string][]byte
	faults map[Op]error
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		data:   make(map[string][]byte),
		faults: make(map[Op]error),
	}
}

// Fail makes every subsequent op return err. A nil err removes the fault.
func (m *MemoryStorage) Fail(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

// Get returns a copy of the stored bytes.
func (m *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.faults[OpGet]; err != nil {
		return nil, err
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

// Set stores a copy of val under key.
func (m *MemoryStorage) Set(_ context.Context, key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faults[OpSet]; err != nil {
		return err
	}
	m.data[key] = bytes.Clone(val)
	return nil
}

// Delete removes key.
func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faults[OpDelete]; err != nil {
		return err
	}
	delete(m.data, key)
	return nil
}

// Keys returns the sorted keys starting with prefix.
func (m *MemoryStorage) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.faults[OpKeys]; err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored keys regardless of prefix.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
