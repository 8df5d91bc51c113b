package token

import "errors"

// Decode failure kinds. The boundary collapses all of these to a single
// 401; the distinction exists for logs only.
var (
	ErrMalformed         = errors.New("token malformed")
	ErrSignatureMismatch = errors.New("token signature mismatch")
	ErrExpired           = errors.New("token expired")
	ErrInvalidClaim      = errors.New("token claim invalid")
	ErrMissingClaim      = errors.New("token claim missing")
)

// Kind renders a decode error as a stable log field value.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrSignatureMismatch):
		return "signature_mismatch"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrMissingClaim):
		return "missing_claim"
	case errors.Is(err, ErrInvalidClaim):
		return "invalid_claim"
	default:
		return "unknown"
	}
}
