package catalog

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory catalog for tests and local topologies.
type MemoryRepo struct {
	mu         sync.Mutex
	nextID     int64
	cafeterias []Cafeteria
	stalls     []Stall
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{nextID: 1} }

func (r *MemoryRepo) ListCafeterias(ctx context.Context) ([]Cafeteria, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Cafeteria, len(r.cafeterias))
	copy(out, r.cafeterias)
	return out, nil
}

func (r *MemoryRepo) ListStalls(ctx context.Context, cafeteriaID int64) ([]Stall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Stall
	for _, s := range r.stalls {
		if s.CafeteriaID == cafeteriaID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *MemoryRepo) CreateCafeteria(ctx context.Context, c Cafeteria) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.nextID
	r.nextID++
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	r.cafeterias = append(r.cafeterias, c)
	return c.ID, nil
}

// AddStall seeds a stall row for tests.
func (r *MemoryRepo) AddStall(s Stall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.nextID
	r.nextID++
	r.stalls = append(r.stalls, s)
}
