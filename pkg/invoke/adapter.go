package invoke

import (
	"context"
	"fmt"

	"github.com/jdziat/method-invoking-jobs/pkg/core"
)

// InvocationAdapter is the fire-time unit wrapped by a job descriptor. It
// exposes only Invoke, so callers never see the resolver's configuration
// surface.
type InvocationAdapter struct {
	resolver *MethodResolver
}

var (
	_ core.Invoker           = (*InvocationAdapter)(nil)
	_ core.ReadinessReporter = (*InvocationAdapter)(nil)
)

// NewInvocationAdapter wraps a prepared resolver.
func NewInvocationAdapter(r *MethodResolver) (*InvocationAdapter, error) {
	if r == nil {
		return nil, &core.ConfigurationError{Op: "adapter", Err: core.ErrNilResolver}
	}
	if !r.IsPrepared() {
		return nil, &core.ConfigurationError{Op: "adapter", Err: core.ErrNotPrepared}
	}
	return &InvocationAdapter{resolver: r}, nil
}

// Prepare builds, prepares and wraps a resolver in one step.
func Prepare(target any, methodName string, arguments ...any) (*InvocationAdapter, error) {
	r := NewMethodResolver(target, methodName, arguments...)
	if err := r.Prepare(); err != nil {
		return nil, err
	}
	return NewInvocationAdapter(r)
}

// Invoke calls the resolved method without call-time arguments. A nil or
// zero-value adapter returns *core.MissingInvokerError.
func (a *InvocationAdapter) Invoke(ctx context.Context) (any, error) {
	if !a.Ready() {
		return nil, &core.MissingInvokerError{}
	}
	return a.resolver.InvokeWithArguments(ctx)
}

// Ready reports whether the adapter wraps a prepared resolver.
func (a *InvocationAdapter) Ready() bool {
	return a != nil && a.resolver != nil && a.resolver.IsPrepared()
}

// MethodName returns the name of the wrapped method.
func (a *InvocationAdapter) MethodName() string {
	if a == nil || a.resolver == nil {
		return ""
	}
	return a.resolver.MethodName()
}

func (a *InvocationAdapter) String() string {
	if a == nil || a.resolver == nil {
		return "<unbound>"
	}
	return fmt.Sprintf("%T.%s", a.resolver.Target(), a.resolver.MethodName())
}
