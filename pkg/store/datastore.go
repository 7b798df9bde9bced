package store

import (
	"context"
)

// Datastore is the boundary to the external consensus-backed configuration
// store (§1, §6). It exposes exactly the verbs the Controller needs to push
// and watch a projected DesiredState: a range put, a prefix range read, a
// prefix delete, and a prefix watch. The consensus algorithm behind any
// implementation is out of scope — this package never runs one.
type Datastore interface {
	// Put writes a single key/value pair.
	Put(ctx context.Context, key, value string) error

	// PutBatch writes every KV atomically where the implementation
	// supports it, or sequentially otherwise.
	PutBatch(ctx context.Context, kvs []KV) error

	// Range returns every KV whose key has the given prefix.
	Range(ctx context.Context, prefix string) ([]KV, error)

	// DeleteRange removes every key with the given prefix.
	DeleteRange(ctx context.Context, prefix string) error

	// Watch streams KV changes under prefix until ctx is canceled. Puts and
	// deletes are both delivered as KV events; a deleted key is delivered
	// with an empty Value so callers can distinguish it from a real update
	// by checking WatchEvent.Deleted.
	Watch(ctx context.Context, prefix string) (<-chan WatchEvent, error)

	// Close releases the underlying client connection.
	Close() error
}

// WatchEvent is a single change observed on a watched prefix. ID is a
// correlation ID assigned by the implementation so one change can be
// traced from the watch callback through to the reconciler pass it wakes.
type WatchEvent struct {
	KV
	Deleted bool
	ID      string
}
