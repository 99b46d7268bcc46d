package descriptor

import (
	"fmt"
	"slices"

	"github.com/jdziat/method-invoking-jobs/pkg/core"
	"github.com/jdziat/method-invoking-jobs/pkg/invoke"
	"github.com/jdziat/method-invoking-jobs/pkg/security"
)

// Factory turns a target method into immutable job descriptors. The
// surrounding container sets the target, calls Prepare once, then Build.
type Factory struct {
	objectName string

	target    any
	method    string
	arguments []any

	invoker core.Invoker
}

// NewFactory creates a factory identified by objectName. Descriptors built
// without an explicit Name are named after it.
func NewFactory(objectName string) *Factory {
	return &Factory{objectName: objectName}
}

// ObjectName returns the factory's identifier.
func (f *Factory) ObjectName() string {
	return f.objectName
}

// SetTarget configures the method to invoke and unbinds any previous invoker.
func (f *Factory) SetTarget(target any, method string, arguments ...any) {
	f.target = target
	f.method = method
	f.arguments = slices.Clone(arguments)
	f.invoker = nil
}

// SetInvoker binds a ready invoker directly, bypassing method resolution.
// A nil, typed-nil or unready invoker is rejected and unbinds the current one.
func (f *Factory) SetInvoker(inv core.Invoker) error {
	if core.InvokerMissing(inv) {
		f.invoker = nil
		return &core.ConfigurationError{Op: "set invoker", Err: core.ErrInvokerNotBound}
	}
	f.invoker = inv
	return nil
}

// Invoker returns the bound invoker, or nil before Prepare.
func (f *Factory) Invoker() core.Invoker {
	return f.invoker
}

// Prepare resolves the configured method and binds an invocation adapter.
func (f *Factory) Prepare() error {
	adapter, err := invoke.Prepare(f.target, f.method, f.arguments...)
	if err != nil {
		f.invoker = nil
		return err
	}
	f.invoker = adapter
	return nil
}

// Build returns a descriptor for the bound invoker.
func (f *Factory) Build(opts ...Option) (*core.JobDescriptor, error) {
	if core.InvokerMissing(f.invoker) {
		return nil, &core.ConfigurationError{Op: "build", Err: core.ErrInvokerNotBound}
	}

	o := NewOptions()
	for _, opt := range opts {
		opt.Apply(o)
	}

	name := o.Name
	if name == "" {
		name = f.objectName
	}
	if err := security.ValidateJobName(name); err != nil {
		return nil, &core.ConfigurationError{Op: "build", Err: fmt.Errorf("name %q: %w", name, err)}
	}

	group := o.Group
	if group == "" {
		group = core.DefaultGroup
	}
	if err := security.ValidateGroupName(group); err != nil {
		return nil, &core.ConfigurationError{Op: "build", Err: fmt.Errorf("group %q: %w", group, err)}
	}

	listeners, err := security.NormalizeListenerNames(o.ListenerNames)
	if err != nil {
		return nil, &core.ConfigurationError{Op: "build", Err: err}
	}

	concurrency := core.Concurrent
	if !o.Concurrent {
		concurrency = core.NonConcurrent
	}

	return core.NewJobDescriptor(core.DescriptorSpec{
		Name:            name,
		Group:           group,
		Description:     o.Description,
		Durable:         o.Durable,
		Concurrency:     concurrency,
		ListenerNames:   listeners,
		PropagateResult: o.PropagateResult,
		Invoker:         f.invoker,
	}), nil
}

// New is shorthand for NewFactory, SetTarget, Prepare and Build.
func New(objectName string, target any, method string, opts ...Option) (*core.JobDescriptor, error) {
	f := NewFactory(objectName)
	f.SetTarget(target, method)
	if err := f.Prepare(); err != nil {
		return nil, err
	}
	return f.Build(opts...)
}
