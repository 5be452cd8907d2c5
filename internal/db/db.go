package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers depend on the narrow sub-interfaces
type Store interface {
	Pinger
	HashStore
	KVStore
	Scripter
	StreamStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Scripter provides server-side atomic operations.
type Scripter interface {
	// HCompareAndSet writes fields into the hash at key only if hash[field] == expected.
	// Returns false when the key is missing or the field holds another value.
	HCompareAndSet(ctx context.Context, key, field, expected string, fields map[string]string) (bool, error)
	// HCompareAndSetIndexed also points the index hash at idx.Key to idx.Value
	// when the swap succeeds, unless the index already holds a larger order.
	HCompareAndSetIndexed(
		ctx context.Context, key, field, expected string, fields map[string]string, idx IndexEntry,
	) (bool, error)
}

// IndexEntry is a single-valued index kept as a hash {value, order}.
// Order is a non-negative decimal integer; the largest order wins.
type IndexEntry struct {
	Key   string
	Value string
	Order string
}

// StreamMessage is one entry read from a stream.
type StreamMessage struct {
	ID     string
	Fields map[string]string
}

// StreamStore provides consumer-group stream operations.
type StreamStore interface {
	XAdd(ctx context.Context, stream string, fields map[string]string) (string, error)
	// XGroupCreate creates the group (and stream). An existing group is not an error.
	XGroupCreate(ctx context.Context, stream, group string) error
	// XReadGroup returns new messages for consumer, or none after block elapses.
	XReadGroup(
		ctx context.Context, stream, group, consumer string, count int64, block time.Duration,
	) ([]StreamMessage, error)
	XAck(ctx context.Context, stream, group string, ids ...string) error
}
