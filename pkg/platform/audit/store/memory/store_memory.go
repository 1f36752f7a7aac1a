package memory

import (
	"context"
	"sync"

	"medgate/pkg/domain"
	audit "medgate/pkg/platform/audit"
)

// InMemoryStore is an append-only log. Ids are assigned under the write lock
// so they are unique and strictly increasing under concurrent appends.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
	lastID  domain.LogID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	entry.ID = s.lastID
	s.entries = append(s.entries, *entry)
	return nil
}

// Query returns matching entries newest first.
func (s *InMemoryStore) Query(_ context.Context, filter audit.Filter) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Entry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		if filter.Matches(&s.entries[i]) {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

// Len reports how many entries have been appended.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
