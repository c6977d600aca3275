package shared

import "context"

// Identity is the caller resolved by the gateway for a request.
type Identity struct {
	Tenant Tenant
	UserID int64
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	if !ok || id.Tenant.IsZero() {
		return Identity{}, false
	}
	return id, true
}
