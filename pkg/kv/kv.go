package kv

import "context"

// Store defines the interface for a key-value store.
// Implementations of this interface can be swapped out,
// allowing for different storage backends (e.g., Redis, in-memory, Raft-replicated).
type Store interface {
	// Get retrieves the value associated with the given key.
	// Returns the value and true if the key exists, or empty string and false if not.
	// A non-nil error means the backend could not answer.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a key-value pair, overwriting any existing value.
	Set(ctx context.Context, key, value string) error

	// Delete removes a key from the store.
	// Returns true if the key was present before the call.
	Delete(ctx context.Context, key string) (bool, error)

	// Keys returns every key currently in the store, in no particular order.
	Keys(ctx context.Context) ([]string, error)

	// Close releases the resources held by the store.
	Close() error
}
