package core

import (
	"context"
	"reflect"
	"slices"
)

// DefaultGroup is the group assigned to descriptors built without one.
const DefaultGroup = "DEFAULT"

// ConcurrencyMode says whether overlapping firings of a descriptor are allowed.
type ConcurrencyMode int

const (
	// Concurrent permits overlapping firings.
	Concurrent ConcurrencyMode = iota
	// NonConcurrent requires the scheduler to serialize firings.
	NonConcurrent
)

func (m ConcurrencyMode) String() string {
	switch m {
	case Concurrent:
		return "concurrent"
	case NonConcurrent:
		return "non-concurrent"
	default:
		return "unknown"
	}
}

// Invoker is the narrow contract the bridge calls at fire time.
type Invoker interface {
	Invoke(ctx context.Context) (any, error)
}

// ReadinessReporter is implemented by invokers that can be unusable while
// non-nil, such as a zero-value adapter.
type ReadinessReporter interface {
	Ready() bool
}

// InvokerMissing reports whether inv cannot be called: a nil interface, a
// typed nil, or an invoker reporting itself not ready.
func InvokerMissing(inv Invoker) bool {
	if inv == nil {
		return true
	}
	v := reflect.ValueOf(inv)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface:
		if v.IsNil() {
			return true
		}
	}
	if r, ok := inv.(ReadinessReporter); ok {
		return !r.Ready()
	}
	return false
}

// DescriptorSpec holds the fields of a JobDescriptor before it is frozen.
type DescriptorSpec struct {
	Name            string
	Group           string
	Description     string
	Durable         bool
	Concurrency     ConcurrencyMode
	ListenerNames   []string
	PropagateResult bool
	Invoker         Invoker
}

// JobDescriptor is the immutable, scheduler-facing record of a job.
type JobDescriptor struct {
	name            string
	group           string
	description     string
	durable         bool
	concurrency     ConcurrencyMode
	listenerNames   []string
	propagateResult bool
	invoker         Invoker
}

// NewJobDescriptor freezes spec into a descriptor. No validation is done here;
// use descriptor.Factory for validated construction.
func NewJobDescriptor(spec DescriptorSpec) *JobDescriptor {
	group := spec.Group
	if group == "" {
		group = DefaultGroup
	}
	return &JobDescriptor{
		name:            spec.Name,
		group:           group,
		description:     spec.Description,
		durable:         spec.Durable,
		concurrency:     spec.Concurrency,
		listenerNames:   slices.Clone(spec.ListenerNames),
		propagateResult: spec.PropagateResult,
		invoker:         spec.Invoker,
	}
}

func (d *JobDescriptor) Name() string        { return d.name }
func (d *JobDescriptor) Group() string       { return d.group }
func (d *JobDescriptor) Description() string { return d.description }
func (d *JobDescriptor) Durable() bool       { return d.durable }

// Key identifies the descriptor as "group.name".
func (d *JobDescriptor) Key() string {
	return d.group + "." + d.name
}

// Concurrency returns the descriptor's concurrency classification.
func (d *JobDescriptor) Concurrency() ConcurrencyMode {
	return d.concurrency
}

// ConcurrentExecutionDisallowed is true for NonConcurrent descriptors.
func (d *JobDescriptor) ConcurrentExecutionDisallowed() bool {
	return d.concurrency == NonConcurrent
}

// ListenerNames returns a copy of the bound listener names.
func (d *JobDescriptor) ListenerNames() []string {
	return slices.Clone(d.listenerNames)
}

// PropagateResult reports whether a successful firing writes the method's
// return value into the firing context.
func (d *JobDescriptor) PropagateResult() bool {
	return d.propagateResult
}

// Invoker returns the bound invoker, or nil when none was bound.
func (d *JobDescriptor) Invoker() Invoker {
	return d.invoker
}
