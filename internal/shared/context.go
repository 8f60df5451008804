package shared

import (
	"context"
	"time"
)

// Identity is the authenticated principal bound to a request.
type Identity struct {
	AccountID       int64
	PasswordVersion int64
	Roles           []string
	Token           string
	ExpiresAt       time.Time
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context. It returns nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}
