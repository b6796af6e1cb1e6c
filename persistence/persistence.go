package persistence

import (
	"context"
	"fmt"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

type KeyNotFoundError struct {
	Key string
}

func (e KeyNotFoundError) Error() string {
	return fmt.Sprintf("key %s not found", e.Key)
}

// Storage is a key/value store with set membership. Keys are used verbatim
// apart from the implementation's namespace prefix.
type Storage interface {
	Set(ctx context.Context, key string, value []byte) error
	// Get returns KeyNotFoundError when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	AddMember(ctx context.Context, setKey string, member string) error
	RemoveMember(ctx context.Context, setKey string, member string) error
	// Members returns an empty slice for unknown sets.
	Members(ctx context.Context, setKey string) ([]string, error)
	Close() error
}

// DelayQueue holds messages until their due time.
type DelayQueue interface {
	Push(ctx context.Context, queueName string, dueAtMillis int64, message []byte) error
	// PopDue removes and returns every message due at or before nowMillis, oldest first.
	PopDue(ctx context.Context, queueName string, nowMillis int64) ([]string, error)
}
