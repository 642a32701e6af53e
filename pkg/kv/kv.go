package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value exists for the key.
var ErrNotFound = errors.New("kv: key not found")

// Store defines the interface for key-value storage backends.
// Implementations: memory (testing), badger (production)
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, overwriting any existing value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix. Order is not
	// guaranteed — callers that need chronological order must sort.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close cleanly shuts down the storage
	Close() error
}
