package cache

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrEmptyEntry is returned when decoding a stored record that carries no payload.
var ErrEmptyEntry = errors.New("cache entry has no payload")

// CacheEntry represents a single cached value with TTL metadata.
// It is the exact record persisted in the storage medium under prefix+key.
//
//nolint:revive // CacheEntry is the canonical name for this exported type.
type CacheEntry struct {
	// Payload is the cached value (JSON-serializable).
	Payload json.RawMessage `json:"payload"`

	// StoredAt is the write time in milliseconds since the Unix epoch.
	StoredAt int64 `json:"storedAt"`

	// TTL is the number of milliseconds the entry stays valid after StoredAt.
	TTL int64 `json:"ttl"`
}

// NewCacheEntry creates an entry stored at now with the given TTL. A TTL that
// is not a whole number of milliseconds is rounded up.
func NewCacheEntry(payload json.RawMessage, now time.Time, ttl time.Duration) *CacheEntry {
	ms := ttl.Milliseconds()
	if ttl > 0 && time.Duration(ms)*time.Millisecond < ttl {
		ms++
	}
	return &CacheEntry{
		Payload:  payload,
		StoredAt: now.UnixMilli(),
		TTL:      ms,
	}
}

// IsValid reports whether the entry may still be served at now.
// An entry is valid iff now - StoredAt <= TTL.
func (e *CacheEntry) IsValid(now time.Time) bool {
	return now.UnixMilli()-e.StoredAt <= e.TTL
}

// IsExpired is the inverse of IsValid.
func (e *CacheEntry) IsExpired(now time.Time) bool {
	return !e.IsValid(now)
}

// Age returns the duration since the entry was stored.
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return time.Duration(now.UnixMilli()-e.StoredAt) * time.Millisecond
}

// TimeUntilExpiration returns the remaining lifetime, or 0 if already expired.
func (e *CacheEntry) TimeUntilExpiration(now time.Time) time.Duration {
	remaining := time.Duration(e.StoredAt+e.TTL-now.UnixMilli()) * time.Millisecond
	if remaining < 0 {
		return 0
	}
	return remaining
}

// encodeEntry serializes an entry for the storage medium.
func encodeEntry(e *CacheEntry) ([]byte, error) {
	return json.Marshal(e)
}

// decodeEntry parses a stored record.
func decodeEntry(data []byte) (*CacheEntry, error) {
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	if len(entry.Payload) == 0 {
		return nil, ErrEmptyEntry
	}
	return &entry, nil
}
