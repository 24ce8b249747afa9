package kvstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the key is absent on Read or Update.
	ErrNotFound = errors.New("key not found")
	// ErrAlreadyExists is returned when the key is already present on Create.
	ErrAlreadyExists = errors.New("key already exists")
	// ErrNotConnected is returned for any operation on a disconnected store.
	ErrNotConnected = errors.New("store not connected")
	// ErrUnavailable is returned when the underlying storage is unreachable.
	ErrUnavailable = errors.New("backend unavailable")
)

// Store is the capability interface satisfied by every backend.
// Backend-native errors never cross this boundary; implementations
// translate them into the sentinel errors above.
type Store interface {
	// Connect acquires the backend resources. Every other operation fails
	// with ErrNotConnected until Connect succeeds.
	Connect(ctx context.Context) error
	// Disconnect releases the backend resources. Stored data survives a
	// Disconnect/Connect cycle on durable backends.
	Disconnect(ctx context.Context) error
	// Create inserts a new pair. Fails with ErrAlreadyExists if the key is
	// present; there is no window in which a duplicate is accepted.
	Create(ctx context.Context, key string, value []byte) error
	// Read returns the current value for the key, ErrNotFound if absent.
	// A zero-length stored value is a valid value, not an absence.
	Read(ctx context.Context, key string) ([]byte, error)
	// Update replaces the value for an existing key. It never creates; an
	// absent key fails with ErrNotFound.
	Update(ctx context.Context, key string, value []byte) error
	// Delete removes the pair. Idempotent: deleting an absent key succeeds.
	Delete(ctx context.Context, key string) error
	// Keys returns a sorted snapshot of the current key set.
	Keys(ctx context.Context) ([]string, error)
}
