// Package storage provides file-based JSON storage for session records.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var ErrNotFound = errors.New("not found")

// Store persists JSON documents under a base directory. Keys are path
// segments; each document lives at <base>/<segments...>.json. Writes go
// through a temp file and rename so readers never observe partial content.
type Store struct {
	basePath string
	mu       sync.Mutex
	locks    map[string]*FileLock
}

// New creates a new Store rooted at basePath.
func New(basePath string) *Store {
	return &Store{
		basePath: basePath,
		locks:    make(map[string]*FileLock),
	}
}

// BasePath returns the root directory of the store.
func (s *Store) BasePath() string {
	return s.basePath
}

func (s *Store) filePath(key []string) string {
	parts := append([]string{s.basePath}, key...)
	return filepath.Join(parts...) + ".json"
}

func (s *Store) dirPath(key []string) string {
	parts := append([]string{s.basePath}, key...)
	return filepath.Join(parts...)
}

// Get reads the document at key into v. Returns ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, key []string, v any) error {
	data, err := os.ReadFile(s.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}
	return nil
}

// Put writes v as the document at key, holding a file lock for the duration.
func (s *Store) Put(ctx context.Context, key []string, v any) error {
	filePath := s.filePath(key)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	lock := s.lockFor(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	// Write to a temp file first, then rename (atomic on POSIX).
	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// Delete removes the document at key. Deleting an absent document is a no-op.
func (s *Store) Delete(ctx context.Context, key []string) error {
	filePath := s.filePath(key)

	lock := s.lockFor(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// List returns the names of documents and subdirectories directly under key.
func (s *Store) List(ctx context.Context, key []string) ([]string, error) {
	entries, err := os.ReadDir(s.dirPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var items []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			items = append(items, name)
		} else if strings.HasSuffix(name, ".json") {
			items = append(items, strings.TrimSuffix(name, ".json"))
		}
	}
	return items, nil
}

// Scan invokes fn for every document directly under key. Unreadable files
// are skipped; an error from fn aborts the scan.
func (s *Store) Scan(ctx context.Context, key []string, fn func(name string, data json.RawMessage) error) error {
	dirPath := s.dirPath(key)

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dirPath, name))
		if err != nil {
			continue
		}

		if err := fn(strings.TrimSuffix(name, ".json"), json.RawMessage(data)); err != nil {
			return err
		}
	}
	return nil
}

// lockFor returns the file lock for a path, creating it on first use.
func (s *Store) lockFor(filePath string) *FileLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[filePath]
	if !ok {
		lock = NewFileLock(filePath)
		s.locks[filePath] = lock
	}
	return lock
}
