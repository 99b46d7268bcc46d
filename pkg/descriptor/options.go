package descriptor

import (
	"slices"

	"github.com/jdziat/method-invoking-jobs/pkg/core"
)

// Options holds configuration for building a job descriptor.
type Options struct {
	Name            string
	Group           string
	Description     string
	Concurrent      bool
	Durable         bool
	ListenerNames   []string
	PropagateResult bool
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Group:           core.DefaultGroup,
		Concurrent:      true,
		Durable:         true,
		PropagateResult: true,
	}
}

// Option modifies Options.
type Option interface {
	Apply(*Options)
}

type optionFunc func(*Options)

func (f optionFunc) Apply(o *Options) { f(o) }

// Name sets the job name. Without it the factory's object name is used.
func Name(name string) Option {
	return optionFunc(func(o *Options) {
		o.Name = name
	})
}

// Group sets the job group.
func Group(group string) Option {
	return optionFunc(func(o *Options) {
		o.Group = group
	})
}

// Description sets a human readable description.
func Description(d string) Option {
	return optionFunc(func(o *Options) {
		o.Description = d
	})
}

// Concurrent controls whether overlapping firings are permitted.
// Concurrent(false) yields a NonConcurrent descriptor.
func Concurrent(enabled bool) Option {
	return optionFunc(func(o *Options) {
		o.Concurrent = enabled
	})
}

// Durable controls whether the job outlives its last trigger.
func Durable(enabled bool) Option {
	return optionFunc(func(o *Options) {
		o.Durable = enabled
	})
}

// Listeners binds named job listeners. Repeated calls accumulate.
func Listeners(names ...string) Option {
	return optionFunc(func(o *Options) {
		o.ListenerNames = append(slices.Clone(o.ListenerNames), names...)
	})
}

// PropagateResult controls whether the method's return value is written to
// the firing context.
func PropagateResult(enabled bool) Option {
	return optionFunc(func(o *Options) {
		o.PropagateResult = enabled
	})
}
