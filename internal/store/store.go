// Package store abstracts the shared counter store used by the rate
// limiter and metrics tracker. Implementations can be in-memory
// (MemoryStore) or distributed (RedisStore).
//
// Design principles:
//   - Thread-safe: all methods must be safe for concurrent use
//   - Fail-safe: errors should not fail requests, only trigger fail-open
//     behavior and logging in callers
//   - Context-aware: all methods accept context and enforce bounded timeouts
package store

import (
	"context"
	"time"
)

// Counters is the key-value contract the routing core needs from its
// backing store: atomic counters with expiry plus bounded lists.
type Counters interface {
	// Get reads an integer counter. The second return is false when the
	// key is absent, which callers must treat as zero, not an error.
	Get(ctx context.Context, key string) (int64, bool, error)

	// SetWithExpiry writes value and attaches a TTL in one operation.
	SetWithExpiry(ctx context.Context, key string, value int64, ttl time.Duration) error

	// Incr atomically increments a counter, creating it at 1 if absent.
	Incr(ctx context.Context, key string) (int64, error)

	// IncrWithExpiry atomically increments a counter and refreshes its TTL.
	IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// PushFront prepends value to the list at key.
	PushFront(ctx context.Context, key string, value int64) error

	// Trim keeps only the list elements in [start, stop], inclusive.
	Trim(ctx context.Context, key string, start, stop int64) error

	// Range returns the list elements in [start, stop], front first.
	// stop = -1 means the end of the list. A missing key yields an empty
	// slice, not an error.
	Range(ctx context.Context, key string, start, stop int64) ([]int64, error)

	// Close releases any resources held by the store.
	Close() error
}
