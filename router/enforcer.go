package router

import (
	"context"
	"fmt"
)

// ThreadEnforcer is consulted at the start of every Register, Unregister, and Post call.
// Returning an error rejects the call before it has any effect.
type ThreadEnforcer interface {
	Enforce(ctx context.Context, identifier string) error
}

// EnforcerFunc is a function that implements [ThreadEnforcer].
type EnforcerFunc func(ctx context.Context, identifier string) error

func (f EnforcerFunc) Enforce(ctx context.Context, identifier string) error {
	return f(ctx, identifier)
}

// AnyGoroutine allows calls from any goroutine and any context.
var AnyGoroutine ThreadEnforcer = EnforcerFunc(func(context.Context, string) error {
	return nil
})

type confinementKey struct {
	enforcer *ContextEnforcer
}

// ContextEnforcer confines a [Router] to calls made with a context derived from [ContextEnforcer.Bind].
// Goroutines have no identity in Go, so the context is what carries permission to use the router.
// This is useful for making sure a router owned by an event loop is only touched from that loop.
type ContextEnforcer struct {
	name string
}

// NewContextEnforcer creates a [ContextEnforcer].
// The name is only used in error messages.
func NewContextEnforcer(name string) *ContextEnforcer {
	return &ContextEnforcer{name: name}
}

// Bind returns a context that this [ContextEnforcer] will accept.
func (e *ContextEnforcer) Bind(ctx context.Context) context.Context {
	return context.WithValue(ctx, confinementKey{enforcer: e}, true)
}

func (e *ContextEnforcer) Enforce(ctx context.Context, identifier string) error {
	if bound, _ := ctx.Value(confinementKey{enforcer: e}).(bool); bound {
		return nil
	}
	return fmt.Errorf("%w: router '%s' is confined to '%s'", ErrConfinement, identifier, e.name)
}
