package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/aircast/aircast/pkg/kv"
)

// Store keeps key-value pairs in memory. Data is lost on restart.
// Useful for testing and development.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// New creates an in-memory store
func New() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Get returns the value stored under key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	val, ok := s.data[key]
	if !ok {
		return nil, kv.ErrNotFound
	}

	// Return a copy to avoid callers mutating stored bytes
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// Put stores value under key
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	return nil
}

// Delete removes the key
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// List returns all keys with the given prefix, in map iteration order
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Close is a no-op for memory storage
func (s *Store) Close() error {
	return nil
}
