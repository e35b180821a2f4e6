// Package tenantctx binds a unit of work to exactly one tenant.
//
// The binding is set once, immediately after authentication, and is
// immutable for the lifetime of the request: there is no override or
// re-bind API, so concurrent requests cannot interfere and a mid-request
// tenant switch is structurally impossible. Everything downstream, from
// the search path a connection gets to the session variable RLS policies
// read, derives from this value.
package tenantctx

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ctxKey is unexported so only this package can install the binding.
type ctxKey struct{}

// Tenant is the immutable per-request tenant binding.
type Tenant struct {
	ID         uuid.UUID
	Slug       string
	SchemaName string
	Status     string
	// UserID and Role describe the authenticated principal's membership
	// in the tenant, resolved at bind time.
	UserID uuid.UUID
	Role   string
}

// ErrAlreadyBound is returned by Bind when the context already carries a
// tenant. Hitting it means a code path tried to re-bind mid-request,
// which is a programming error.
var ErrAlreadyBound = errors.New("tenantctx: context already bound to a tenant")

// ErrNotBound is returned by From when no binding exists.
var ErrNotBound = errors.New("tenantctx: no tenant bound to context")

// Bind returns a child context carrying t. It fails if ctx is already
// bound; callers must treat that as a bug, not a recoverable condition.
func Bind(ctx context.Context, t Tenant) (context.Context, error) {
	if _, ok := ctx.Value(ctxKey{}).(Tenant); ok {
		return ctx, ErrAlreadyBound
	}

	return context.WithValue(ctx, ctxKey{}, t), nil
}

// From returns the tenant bound to ctx.
func From(ctx context.Context) (Tenant, error) {
	t, ok := ctx.Value(ctxKey{}).(Tenant)
	if !ok {
		return Tenant{}, ErrNotBound
	}

	return t, nil
}

// MustFrom returns the binding or panics. For call sites that run strictly
// after the bind middleware.
func MustFrom(ctx context.Context) Tenant {
	t, err := From(ctx)
	if err != nil {
		panic(err)
	}

	return t
}
