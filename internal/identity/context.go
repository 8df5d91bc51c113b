package identity

import (
	"context"
	"errors"
)

type ctxKey int

const ctxPrincipal ctxKey = iota

// WithPrincipal attaches a fully-formed principal to the request context.
// There is deliberately no way to attach a partial identity: either a
// request carries a complete Principal or it carries none.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal, p)
}

// FromContext returns the principal established for this request, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxPrincipal).(Principal)
	return p, ok
}

// CurrentUserID returns the authenticated user id from context.
func CurrentUserID(ctx context.Context) (int64, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return 0, errors.New("principal not in context")
	}
	return p.UserID, nil
}

// CurrentRole returns the authenticated role from context.
func CurrentRole(ctx context.Context) (Role, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return "", errors.New("principal not in context")
	}
	return p.Role, nil
}
