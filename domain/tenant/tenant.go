// Package tenant carries the identity scope every engine operation
// runs under. Authentication itself is owned by an external
// collaborator; the engine only consumes the resolved tenant and actor.
package tenant

import "context"

// Context identifies the tenant and acting user for one operation.
type Context struct {
	TenantID string
	ActorID  string
}

// Valid reports whether the scope carries a tenant.
func (c Context) Valid() bool {
	return c.TenantID != ""
}

type ctxKey struct{}

// WithContext attaches the tenant scope to a context.
func WithContext(ctx context.Context, t Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext extracts the tenant scope from a context.
func FromContext(ctx context.Context) (Context, bool) {
	t, ok := ctx.Value(ctxKey{}).(Context)
	return t, ok
}
