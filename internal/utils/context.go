package utils

import "context"

const RoleAdmin = "admin"

type ctxKey int

const (
	principalKey ctxKey = iota
	internalRequestKey
)

// Principal is the authenticated caller behind a request.
type Principal struct {
	UserID uint
	Email  string
	Role   string
}

// WithPrincipal is called by the auth middleware once a token is verified.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom reports false for anonymous requests.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// WithInternalRequest marks a request as coming from a trusted service.
func WithInternalRequest(ctx context.Context) context.Context {
	return context.WithValue(ctx, internalRequestKey, true)
}

func IsInternalRequest(ctx context.Context) bool {
	v, _ := ctx.Value(internalRequestKey).(bool)
	return v
}
