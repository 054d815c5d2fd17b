package hostfuncs

import (
	"context"
)

type guestNameKey struct{}

// WithGuestName tags ctx with the name of the guest making bridge calls.
// Grant checks and logs use it to attribute requests.
func WithGuestName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, guestNameKey{}, name)
}

// GuestNameFromContext returns the guest name set by WithGuestName.
func GuestNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(guestNameKey{}).(string)
	return name, ok && name != ""
}

// CallContext wraps a context.Context with details of the native call in
// progress. Middleware uses it to learn what is being called and to stash
// request-scoped values.
type CallContext interface {
	context.Context

	// Binding returns the binding being invoked.
	Binding() *FunctionBinding

	// SetValue stores a request-scoped value. Unlike context.WithValue,
	// this mutates the existing CallContext.
	SetValue(key, value any)

	// GetValue retrieves a value set by SetValue.
	GetValue(key any) (value any, ok bool)
}

type callContext struct {
	context.Context
	binding *FunctionBinding
	values  map[any]any
}

// NewCallContext creates a CallContext for one invocation of b.
func NewCallContext(ctx context.Context, b *FunctionBinding) CallContext {
	return &callContext{Context: ctx, binding: b}
}

func (c *callContext) Binding() *FunctionBinding {
	return c.binding
}

func (c *callContext) SetValue(key, value any) {
	if c.values == nil {
		c.values = make(map[any]any)
	}
	c.values[key] = value
}

func (c *callContext) GetValue(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// CallContextFrom returns ctx as a CallContext, or nil when it is not one.
func CallContextFrom(ctx context.Context) CallContext {
	cc, _ := ctx.(CallContext)
	return cc
}
