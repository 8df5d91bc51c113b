package audit

import "time"

// Event is an immutable, append-only record of an authentication
// decision. The HTTP boundary deliberately collapses every auth failure
// to a uniform 401; this trail is where the failure subtype survives.
//
// Invariants:
// - Events are never updated or deleted.
// - Audit capture is best-effort; auth flows must not block on it.
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the category of the audit record.
	Type EventType `json:"type" db:"type"`

	// Username is the claimed subject. On failures it is the claimed,
	// not verified, identity.
	Username string `json:"username,omitempty" db:"username"`

	// UserID is set only when a verified principal existed.
	UserID int64  `json:"user_id,omitempty" db:"user_id"`
	Role   string `json:"role,omitempty" db:"role"`

	// IPAddress should capture the original client IP when available.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Reason carries the failure subtype (expired, signature_mismatch,
	// bad_credential, ...). Empty for successes.
	Reason string `json:"reason,omitempty" db:"reason"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeLogin         EventType = "login"
	EventTypeLoginFailure  EventType = "login_failure"
	EventTypeTokenRefresh  EventType = "token_refresh"
	EventTypeTokenRejected EventType = "token_rejected"
)
