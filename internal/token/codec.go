// Package token implements the signed identity token shared by the edge
// tier and every downstream service. Encoding and decoding are pure
// computation over a pre-shared symmetric key; no I/O, no global state.
package token

import (
	"errors"
	"fmt"
	"time"

	"canteen-platform/internal/identity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Codec signs and verifies identity tokens with a single shared HS256
// key. The same key is injected into the issuer, the gateway and every
// service at deploy time; key distribution is out of scope here.
type Codec struct {
	secret []byte
	issuer string
}

func NewCodec(secret, issuer string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	return &Codec{secret: []byte(secret), issuer: issuer}, nil
}

// Encode mints a token for the given subject (username) carrying the
// userId and role claims, valid for ttl from now.
func (c *Codec) Encode(subject string, userID int64, role identity.Role, ttl time.Duration, now time.Time) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: subject is empty", ErrMissingClaim)
	}
	canonical, err := identity.NormalizeRole(string(role))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidClaim, err)
	}
	if ttl <= 0 {
		return "", fmt.Errorf("%w: ttl must be positive", ErrInvalidClaim)
	}

	cl := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		UserID: userID,
		Role:   string(canonical),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, cl)
	return t.SignedString(c.secret)
}

// Decode verifies the token against the shared key at the given instant
// and extracts a fully-formed Principal. A token whose signature checks
// out but which lacks the subject, userId or role claim is still
// rejected: downstream code never sees a partial identity.
func (c *Codec) Decode(tokenString string, now time.Time) (identity.Principal, error) {
	cl, err := c.parse(tokenString, now)
	if err != nil {
		return identity.Principal{}, err
	}

	if cl.Subject == "" {
		return identity.Principal{}, fmt.Errorf("%w: subject", ErrMissingClaim)
	}
	uid, err := normalizeUserID(cl.UserID)
	if err != nil {
		return identity.Principal{}, fmt.Errorf("userId claim: %w", err)
	}
	if cl.Role == "" {
		return identity.Principal{}, fmt.Errorf("%w: role", ErrMissingClaim)
	}
	role, err := identity.NormalizeRole(cl.Role)
	if err != nil {
		return identity.Principal{}, fmt.Errorf("%w: %v", ErrInvalidClaim, err)
	}

	return identity.Principal{
		UserID:   uid,
		Username: cl.Subject,
		Role:     role,
	}, nil
}

// IsValid is the coarse gate: signature intact and not expired at the
// given instant. It does not inspect the identity claims; callers that
// need those go through Decode and handle its failure kinds.
func (c *Codec) IsValid(tokenString string, now time.Time) bool {
	_, err := c.parse(tokenString, now)
	return err == nil
}

func (c *Codec) parse(tokenString string, now time.Time) (claims, error) {
	var cl claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	_, err := parser.ParseWithClaims(tokenString, &cl, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return claims{}, mapParseError(err)
	}
	return cl, nil
}

// mapParseError folds the jwt library's error surface into the closed
// failure taxonomy used for logging.
func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
