package guardianvault

import (
	"context"
)

type contextKey struct{}

var principalContextKey = contextKey{}

// WithPrincipal attaches the authenticated caller identity to the context.
func WithPrincipal(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, principalContextKey, id)
}

// PrincipalFrom extracts the authenticated caller identity.
func PrincipalFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(principalContextKey).(string)
	return id, ok
}
