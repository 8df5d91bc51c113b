// Package issuer mints identity tokens at login and refresh time. It is
// the only auth component that performs I/O: one credential-store
// lookup per login, awaited per request with no cross-request locking.
package issuer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"canteen-platform/internal/audit"
	"canteen-platform/internal/identity"
	"canteen-platform/internal/token"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrBadCredential covers unknown username, wrong password and
	// disabled accounts alike; the response must not reveal which.
	ErrBadCredential = errors.New("bad credential")

	// ErrInsufficientPrivilege marks an account whose role is not
	// eligible for the requested issuance path.
	ErrInsufficientPrivilege = errors.New("insufficient privilege")

	// ErrThrottled marks a username temporarily locked out after
	// repeated failures.
	ErrThrottled = errors.New("too many failed attempts")
)

// Throttle limits repeated failed logins per username. Implementations
// are best-effort: a throttle error never fails a login by itself.
type Throttle interface {
	TooManyFailures(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}

type Issuer struct {
	codec *token.Codec
	store Store
	ttl   time.Duration

	// Optional collaborators.
	Throttle Throttle
	Audit    *audit.Service

	clock func() time.Time
	log   *slog.Logger
}

func NewIssuer(codec *token.Codec, store Store, ttl time.Duration, log *slog.Logger) (*Issuer, error) {
	if codec == nil {
		return nil, errors.New("codec is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Issuer{codec: codec, store: store, ttl: ttl, clock: time.Now, log: log}, nil
}

// Issue verifies the credentials against the store and mints a token
// carrying the account's id and role. The account's last-login stamp is
// updated as a side effect; a failure there is logged, not surfaced.
func (i *Issuer) Issue(ctx context.Context, username, password, clientIP string) (string, error) {
	if i.Throttle != nil {
		locked, err := i.Throttle.TooManyFailures(ctx, username)
		if err != nil {
			i.log.Warn("login throttle check failed", "err", err)
		} else if locked {
			i.auditFailure(ctx, username, clientIP, "throttled")
			return "", ErrThrottled
		}
	}

	acc, err := i.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			i.loginFailed(ctx, username, clientIP, "unknown_username")
			return "", ErrBadCredential
		}
		return "", fmt.Errorf("credential lookup: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		i.loginFailed(ctx, username, clientIP, "wrong_password")
		return "", ErrBadCredential
	}

	if acc.Disabled {
		i.loginFailed(ctx, username, clientIP, "account_disabled")
		return "", fmt.Errorf("%w: account disabled", ErrBadCredential)
	}

	role, err := identity.NormalizeRole(string(acc.Role))
	if err != nil {
		// A stored role outside the enum is a data problem, not a
		// caller problem; fail the login without leaking details.
		i.log.Error("account has invalid role", "username", username, "role", acc.Role)
		return "", ErrBadCredential
	}

	now := i.clock()
	tok, err := i.codec.Encode(acc.Username, acc.ID, role, i.ttl, now)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}

	if err := i.store.TouchLastLogin(ctx, acc.ID, now.UTC()); err != nil {
		i.log.Warn("last-login update failed", "username", username, "err", err)
	}
	if i.Throttle != nil {
		if err := i.Throttle.Reset(ctx, username); err != nil {
			i.log.Warn("login throttle reset failed", "err", err)
		}
	}
	if i.Audit != nil {
		_ = i.Audit.LogLogin(ctx, acc.Username, acc.ID, string(role), clientIP)
	}
	return tok, nil
}

// Refresh re-issues a token with a fresh TTL and the same claims. The
// old token must still verify; its decode failures propagate unchanged
// so the boundary treats them exactly like any other invalid token.
func (i *Issuer) Refresh(ctx context.Context, oldToken string) (string, error) {
	return i.refresh(ctx, oldToken, false)
}

// RefreshAdmin is the admin-scoped refresh path: the old token must
// carry the ADMIN role on top of being valid.
func (i *Issuer) RefreshAdmin(ctx context.Context, oldToken string) (string, error) {
	return i.refresh(ctx, oldToken, true)
}

func (i *Issuer) refresh(ctx context.Context, oldToken string, adminOnly bool) (string, error) {
	now := i.clock()

	p, err := i.codec.Decode(oldToken, now)
	if err != nil {
		return "", err
	}
	if adminOnly && !p.Role.IsAdmin() {
		return "", ErrInsufficientPrivilege
	}

	tok, err := i.codec.Encode(p.Username, p.UserID, p.Role, i.ttl, now)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	if i.Audit != nil {
		_ = i.Audit.Append(ctx, audit.Event{
			Type:     audit.EventTypeTokenRefresh,
			Username: p.Username,
			UserID:   p.UserID,
			Role:     string(p.Role),
		})
	}
	return tok, nil
}

func (i *Issuer) loginFailed(ctx context.Context, username, clientIP, reason string) {
	if i.Throttle != nil {
		if err := i.Throttle.RecordFailure(ctx, username); err != nil {
			i.log.Warn("login throttle record failed", "err", err)
		}
	}
	i.auditFailure(ctx, username, clientIP, reason)
}

func (i *Issuer) auditFailure(ctx context.Context, username, clientIP, reason string) {
	if i.Audit != nil {
		_ = i.Audit.LogLoginFailure(ctx, username, clientIP, reason)
	}
}
