package journal

import (
	"context"
	"sync"
)

// MemoryStore keeps the most recent entries in memory.
type MemoryStore struct {
	mu      sync.Mutex
	cap     int
	entries []Entry
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{cap: capacity}
}

func (s *MemoryStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == s.cap {
		copy(s.entries, s.entries[1:])
		s.entries = s.entries[:s.cap-1]
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return q.apply(s.entries), nil
}

func (s *MemoryStore) Close() error { return nil }
