package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidArgument = errors.New("catalog: invalid argument")

// Service wraps the repository with input validation. Authorization is
// not done here: by the time a call arrives the route policy has
// already rendered its decision.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) ListCafeterias(ctx context.Context) ([]Cafeteria, error) {
	return s.repo.ListCafeterias(ctx)
}

func (s *Service) ListStalls(ctx context.Context, cafeteriaID int64) ([]Stall, error) {
	if cafeteriaID <= 0 {
		return nil, fmt.Errorf("%w: cafeteria id must be positive", ErrInvalidArgument)
	}
	return s.repo.ListStalls(ctx, cafeteriaID)
}

func (s *Service) CreateCafeteria(ctx context.Context, c Cafeteria) (int64, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Location = strings.TrimSpace(c.Location)
	if c.Name == "" {
		return 0, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	if c.Location == "" {
		return 0, fmt.Errorf("%w: location is required", ErrInvalidArgument)
	}
	return s.repo.CreateCafeteria(ctx, c)
}
