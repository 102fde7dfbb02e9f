package principal

import (
	"context"
	"slices"
)

// Principal is the authenticated admin user making a request.
type Principal struct {
	ID          string
	Superuser   bool
	Permissions []string
}

// Anonymous reports whether the principal carries no identity.
func (p Principal) Anonymous() bool { return p.ID == "" }

// HasPermission reports whether the principal holds codename directly.
func (p Principal) HasPermission(codename string) bool {
	return p.Superuser || slices.Contains(p.Permissions, codename)
}

type ctxKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored in ctx, or an anonymous one.
func FromContext(ctx context.Context) Principal {
	if p, ok := ctx.Value(ctxKey{}).(Principal); ok {
		return p
	}
	return Principal{}
}
