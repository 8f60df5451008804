package gate

import (
	"context"

	"github.com/panelkit/panel/internal/shared"
)

// ContextWithIdentity binds id to ctx.
func ContextWithIdentity(ctx context.Context, id *shared.Identity) context.Context {
	return shared.ContextWithIdentity(ctx, id)
}

// IdentityFromContext returns the identity bound by the gate, or nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *shared.Identity {
	return shared.IdentityFromContext(ctx)
}
