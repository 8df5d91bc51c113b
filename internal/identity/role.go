package identity

import (
	"fmt"
	"strings"
)

// Role is the closed set of roles carried by tokens and trusted headers.
// Keep these stable; they are part of the auth contract between services.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// rolePrefix is the legacy prefixed form still emitted by some callers
// (X-User-Role: ROLE_ADMIN). Both forms are accepted on input; the
// unprefixed form is canonical everywhere inside the process.
const rolePrefix = "ROLE_"

// NormalizeRole maps any accepted spelling of a role (USER, ADMIN,
// ROLE_USER, ROLE_ADMIN, any case) to its canonical Role. Anything
// outside the closed set is an error, never coerced.
//
// NormalizeRole is idempotent: NormalizeRole(string(r)) == r for any
// Role it returns.
func NormalizeRole(s string) (Role, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, rolePrefix)
	switch Role(v) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) IsAdmin() bool { return r == RoleAdmin }
