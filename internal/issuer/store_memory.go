package issuer

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory credential store for tests and local
// topologies without Postgres.
type MemoryStore struct {
	mu        sync.Mutex
	accounts  map[string]Account
	lastLogin map[int64]time.Time
}

func NewMemoryStore(accounts ...Account) *MemoryStore {
	s := &MemoryStore{
		accounts:  make(map[string]Account, len(accounts)),
		lastLogin: make(map[int64]time.Time),
	}
	for _, a := range accounts {
		s.accounts[a.Username] = a
	}
	return s
}

func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[username]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (s *MemoryStore) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLogin[id] = at
	return nil
}

// LastLogin reports the recorded last-login instant, if any.
func (s *MemoryStore) LastLogin(id int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.lastLogin[id]
	return at, ok
}
