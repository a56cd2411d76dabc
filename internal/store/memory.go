package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Counters.
//
// Characteristics:
//   - Fast: no network calls
//   - Local-only: counters are not shared across instances
//   - No persistence: state is lost on restart
//
// Use cases: single-instance deployments, development, and tests.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*memEntry
	lists    map[string][]int64
	now      func() time.Time
}

type memEntry struct {
	value     int64
	expiresAt time.Time // zero means no expiry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]*memEntry),
		lists:    make(map[string][]int64),
		now:      time.Now,
	}
}

// SetClock overrides the store's time source. Test hook for expiry checks.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) liveLocked(key string) (*memEntry, bool) {
	e, ok := s.counters[key]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		delete(s.counters, key)
		return nil, false
	}
	return e, true
}

// Get reads an integer counter.
func (s *MemoryStore) Get(ctx context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.liveLocked(key)
	if !ok {
		return 0, false, nil
	}
	return e.value, true, nil
}

// SetWithExpiry writes value with a TTL.
func (s *MemoryStore) SetWithExpiry(ctx context.Context, key string, value int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[key] = &memEntry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

// Incr atomically increments a counter.
func (s *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.liveLocked(key)
	if !ok {
		e = &memEntry{}
		s.counters[key] = e
	}
	e.value++
	return e.value, nil
}

// IncrWithExpiry atomically increments a counter and refreshes its TTL.
func (s *MemoryStore) IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.liveLocked(key)
	if !ok {
		e = &memEntry{}
		s.counters[key] = e
	}
	e.value++
	e.expiresAt = s.now().Add(ttl)
	return e.value, nil
}

// PushFront prepends value to the list at key.
func (s *MemoryStore) PushFront(ctx context.Context, key string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lists[key] = append([]int64{value}, s.lists[key]...)
	return nil
}

// Trim keeps only the list elements in [start, stop].
func (s *MemoryStore) Trim(ctx context.Context, key string, start, stop int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[key]
	n := int64(len(list))
	if n == 0 {
		return nil
	}
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		delete(s.lists, key)
		return nil
	}
	s.lists[key] = append([]int64(nil), list[start:stop+1]...)
	return nil
}

// Range returns the list elements in [start, stop], front first.
func (s *MemoryStore) Range(ctx context.Context, key string, start, stop int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[key]
	n := int64(len(list))
	if n == 0 {
		return nil, nil
	}
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return nil, nil
	}
	return append([]int64(nil), list[start:stop+1]...), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
