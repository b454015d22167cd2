package state

import (
	"context"
	"sync"
)

// Store records which remote files have already been converted so the
// watcher can skip them on later polls.
type Store interface {
	// Contains reports whether the path was already processed.
	Contains(ctx context.Context, path string) (bool, error)

	// Add marks the path as processed. Adding a path twice is a no-op.
	Add(ctx context.Context, path string) error

	// Close releases any resources held by the store.
	Close() error
}

// MemoryStore keeps the processed set in memory. State is lost when the
// process exits, so every file is reconsidered on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	paths map[string]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		paths: make(map[string]struct{}),
	}
}

// Contains reports whether the path was already processed.
func (s *MemoryStore) Contains(ctx context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.paths[path]
	return ok, nil
}

// Add marks the path as processed.
func (s *MemoryStore) Add(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paths[path] = struct{}{}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
