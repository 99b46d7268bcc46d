package core

import (
	"errors"
	"fmt"
)

// Configuration errors
var (
	ErrTargetNotSet        = errors.New("methodjobs: target object not set")
	ErrMethodNameEmpty     = errors.New("methodjobs: target method name is empty")
	ErrMethodNotFound      = errors.New("methodjobs: no matching method found")
	ErrSignatureMismatch   = errors.New("methodjobs: method signature does not match arguments")
	ErrNotPrepared         = errors.New("methodjobs: method resolver not prepared")
	ErrNilResolver         = errors.New("methodjobs: method resolver cannot be nil")
	ErrInvokerNotBound     = errors.New("methodjobs: no invocation adapter bound")
	ErrInvalidJobName      = errors.New("methodjobs: invalid job name (must be alphanumeric, start with letter)")
	ErrJobNameTooLong      = errors.New("methodjobs: job name too long")
	ErrInvalidGroupName    = errors.New("methodjobs: invalid group name (dots are not allowed)")
	ErrInvalidListenerName = errors.New("methodjobs: invalid listener name")
	ErrTooManyListeners    = errors.New("methodjobs: too many listener names")
)

// Invocation errors
var (
	ErrArgumentMismatch = errors.New("methodjobs: call-time arguments do not match method signature")
)

// Scheduler errors
var (
	ErrNilDescriptor            = errors.New("methodjobs: descriptor cannot be nil")
	ErrDescriptorExists         = errors.New("methodjobs: descriptor already exists")
	ErrDescriptorNotFound       = errors.New("methodjobs: descriptor not found")
	ErrTriggerExists            = errors.New("methodjobs: trigger already exists")
	ErrTriggerNotFound          = errors.New("methodjobs: trigger not found")
	ErrNonDurableWithoutTrigger = errors.New("methodjobs: non-durable descriptor cannot be stored without a trigger")
	ErrSchedulerNotStarted      = errors.New("methodjobs: scheduler not started")
)

// Storage errors
var (
	ErrExecutionNotFound = errors.New("methodjobs: execution record not found")
)

// ConfigurationError is returned at prepare or build time when a job is
// misconfigured. It is fatal and never retried.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// InvocationFailure captures a fault raised by an invoked target method.
type InvocationFailure struct {
	Method string
	Cause  error
}

func (e *InvocationFailure) Error() string {
	return fmt.Sprintf("invocation of %s failed: %v", e.Method, e.Cause)
}

func (e *InvocationFailure) Unwrap() error {
	return e.Cause
}

// PanicError is the cause recorded when a target method panics.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// JobMethodInvocationFailedError is surfaced to the scheduler when the
// method behind a fired job fails.
type JobMethodInvocationFailedError struct {
	JobKey string
	Method string
	Cause  error
}

func (e *JobMethodInvocationFailedError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("job %s: method invocation failed: %v", e.JobKey, e.Cause)
	}
	return fmt.Sprintf("job %s: method %s invocation failed: %v", e.JobKey, e.Method, e.Cause)
}

func (e *JobMethodInvocationFailedError) Unwrap() error {
	return e.Cause
}

// MissingInvokerError means a descriptor reached the bridge without an
// invocation adapter. It is a configuration defect and is never retried.
type MissingInvokerError struct {
	JobKey string
}

func (e *MissingInvokerError) Error() string {
	if e.JobKey == "" {
		return "methodjobs: firing has no job descriptor"
	}
	return fmt.Sprintf("methodjobs: job %s has no invocation adapter bound", e.JobKey)
}

// NoRetryError indicates an error that should not be retried.
type NoRetryError struct {
	Err error
}

func (e *NoRetryError) Error() string {
	return fmt.Sprintf("no retry: %v", e.Err)
}

func (e *NoRetryError) Unwrap() error {
	return e.Err
}

// NoRetry wraps an error to indicate it should not be retried.
// A target method returning it asks the scheduler to stop firing the job.
func NoRetry(err error) error {
	return &NoRetryError{Err: err}
}

// IsFatal reports whether err means the job must not fire again.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var missing *MissingInvokerError
	if errors.As(err, &missing) {
		return true
	}
	var cfg *ConfigurationError
	if errors.As(err, &cfg) {
		return true
	}
	var noRetry *NoRetryError
	return errors.As(err, &noRetry)
}
