package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// cacheFileExtension is the file extension used for cache entries.
const cacheFileExtension = ".json"

// FileStorage provides file-based cache storage.
// Each key is stored as a JSON file in a single directory, so entries survive
// process restarts. Thread-safe for concurrent access within one process.
type FileStorage struct {
	// directory is the cache directory path.
	directory string

	// mu protects concurrent access to file operations.
	mu sync.RWMutex
}

// NewFileStorage creates a new file-based storage.
// The directory will be created if it doesn't exist.
func NewFileStorage(directory string) (*FileStorage, error) {
	if directory == "" {
		return nil, errors.New("cache directory cannot be empty")
	}

	if err := os.MkdirAll(directory, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileStorage{directory: directory}, nil
}

// Get reads the record stored under key.
func (s *FileStorage) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidCacheKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.keyToFilePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	return data, nil
}

// Set writes val under key, replacing any previous record.
func (s *FileStorage) Set(_ context.Context, key string, val []byte) error {
	if key == "" {
		return ErrInvalidCacheKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.keyToFilePath(key)

	// Write to temporary file first, then rename for atomicity
	tempPath := filePath + ".tmp"
	if writeErr := os.WriteFile(tempPath, val, 0600); writeErr != nil {
		return fmt.Errorf("failed to write cache file: %w", writeErr)
	}

	if renameErr := os.Rename(tempPath, filePath); renameErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename cache file: %w", renameErr)
	}

	return nil
}

// Delete removes a record by key.
// Returns nil if the record doesn't exist (idempotent).
func (s *FileStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrInvalidCacheKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.keyToFilePath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}

	return nil
}

// Keys lists the stored keys starting with prefix.
// Files that don't decode back to a key are skipped.
func (s *FileStorage) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != cacheFileExtension {
			continue
		}

		key, unescapeErr := url.QueryUnescape(strings.TrimSuffix(entry.Name(), cacheFileExtension))
		if unescapeErr != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	return keys, nil
}

// Size returns the total size of the stored records in bytes.
func (s *FileStorage) Size() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var totalSize int64
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != cacheFileExtension {
			continue
		}
		info, infoErr := entry.Info()
		if infoErr != nil {
			continue
		}
		totalSize += info.Size()
	}

	return totalSize, nil
}

// Directory returns the cache directory path.
func (s *FileStorage) Directory() string {
	return s.directory
}

// keyToFilePath converts a key to a file path.
// The key is query-escaped so path separators and colons are filesystem safe
// and Keys can recover the original key from the file name.
func (s *FileStorage) keyToFilePath(key string) string {
	return filepath.Join(s.directory, url.QueryEscape(key)+cacheFileExtension)
}
