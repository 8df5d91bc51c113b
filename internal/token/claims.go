package token

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// claims is the only supported JWT claims shape across the platform.
// userId is declared as `any` because callers have historically sent it
// as an integer or as a numeric string; normalizeUserID is the single
// place where that tolerance lives.
type claims struct {
	jwt.RegisteredClaims

	UserID any    `json:"userId"`
	Role   string `json:"role"`
}

// normalizeUserID maps the accepted wire shapes of the userId claim to
// an int64. The accepted set is closed: JSON numbers (integral only),
// numeric strings, and json.Number. Absence is a missing claim; any
// other shape is an invalid claim.
func normalizeUserID(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, ErrMissingClaim
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: userId %v is not an integer", ErrInvalidClaim, n)
		}
		return int64(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: userId %q is not an integer", ErrInvalidClaim, n.String())
		}
		return i, nil
	case string:
		if n == "" {
			return 0, ErrMissingClaim
		}
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: userId %q is not numeric", ErrInvalidClaim, n)
		}
		return i, nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%w: userId has unsupported type %T", ErrInvalidClaim, v)
	}
}
