package repository

import (
	"sync"

	"github.com/okian/correlate/internal/domain/model"
	"github.com/okian/correlate/pkg/metrics"
)

const defaultCapacity = 100

// MemoryStore is a fixed-size ring of runs.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	ring     []model.Run
	next     int // slot for the next Save
	count    int
	byID     map[string]int // run id -> ring slot
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(s)
	}
	s.ring = make([]model.Run, s.capacity)
	s.byID = make(map[string]int, s.capacity)
	return s
}

// Save implements Store. Saving an existing id replaces that run in place.
func (s *MemoryStore) Save(run model.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot, ok := s.byID[run.ID]; ok {
		s.ring[slot] = run
		return
	}

	if s.count == s.capacity {
		delete(s.byID, s.ring[s.next].ID)
	} else {
		s.count++
	}
	s.ring[s.next] = run
	s.byID[run.ID] = s.next
	s.next = (s.next + 1) % s.capacity

	metrics.UpdateHistorySize(s.count)
}

// Get implements Store.
func (s *MemoryStore) Get(id string) (model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.byID[id]
	if !ok {
		return model.Run{}, ErrNotFound
	}
	return s.ring[slot], nil
}

// List implements Store. A limit of 0 returns every run.
func (s *MemoryStore) List(limit int) ([]model.Run, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.Run, 0, n)
	for i := 1; i <= n; i++ {
		slot := (s.next - i + s.capacity) % s.capacity
		out = append(out, s.ring[slot])
	}
	return out, nil
}

// Latest implements Store.
func (s *MemoryStore) Latest() (model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.count == 0 {
		return model.Run{}, ErrNotFound
	}
	return s.ring[(s.next-1+s.capacity)%s.capacity], nil
}

// Count implements Store.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}
