package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only. No Update/Delete methods are provided by
// design.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records authentication decisions.
//
// Audit is internal-only; these records are never exposed through the
// public API. Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogLogin records a successful credential login.
func (s *Service) LogLogin(ctx context.Context, username string, userID int64, role, ip string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeLogin,
		Username:  username,
		UserID:    userID,
		Role:      role,
		IPAddress: ip,
	})
}

// LogLoginFailure records a rejected login attempt with its subtype.
func (s *Service) LogLoginFailure(ctx context.Context, username, ip, reason string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeLoginFailure,
		Username:  username,
		IPAddress: ip,
		Reason:    reason,
	})
}

// LogTokenRejected records a token the edge tier refused to let through.
func (s *Service) LogTokenRejected(ctx context.Context, ip, reason string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeTokenRejected,
		IPAddress: ip,
		Reason:    reason,
	})
}
