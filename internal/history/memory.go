package history

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[int64][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[int64][]string)}
}

func (s *MemoryStore) Record(ctx context.Context, userID int64, term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return ErrInvalidTerm
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = append([]string{term}, s.entries[userID]...)
	if len(s.entries[userID]) > defaultMaxEntries {
		s.entries[userID] = s.entries[userID][:defaultMaxEntries]
	}
	return nil
}

func (s *MemoryStore) Recent(ctx context.Context, userID int64, limit int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.entries[userID]
	if limit <= 0 || limit > int64(len(list)) {
		limit = int64(len(list))
	}
	out := make([]string, limit)
	copy(out, list[:limit])
	return out, nil
}

func (s *MemoryStore) Clear(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}
