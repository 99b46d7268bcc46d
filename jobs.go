// Package methodjobs turns a named method on an ordinary Go value into a
// schedulable job.
//
// This is the main package users should import. It re-exports the public
// types of the pkg/ packages for a clean API surface.
//
// Basic usage:
//
//	// Describe the job: call cleaner.Purge(ctx, 30) on every firing
//	desc, _ := methodjobs.NewDescriptor("purge", cleaner, "Purge",
//	    methodjobs.Arguments(30),
//	    methodjobs.AllowConcurrent(false),
//	)
//
//	// Fire it on a schedule
//	b := methodjobs.NewBridge()
//	s := methodjobs.NewScheduler(b)
//	s.ScheduleJob(desc, "nightly", methodjobs.Daily(3, 0))
//	s.Start(ctx)
package methodjobs

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/jdziat/method-invoking-jobs/pkg/bridge"
	"github.com/jdziat/method-invoking-jobs/pkg/config"
	"github.com/jdziat/method-invoking-jobs/pkg/core"
	"github.com/jdziat/method-invoking-jobs/pkg/descriptor"
	"github.com/jdziat/method-invoking-jobs/pkg/history"
	"github.com/jdziat/method-invoking-jobs/pkg/invoke"
	"github.com/jdziat/method-invoking-jobs/pkg/jobctx"
	"github.com/jdziat/method-invoking-jobs/pkg/schedule"
	"github.com/jdziat/method-invoking-jobs/pkg/scheduler"
	"github.com/jdziat/method-invoking-jobs/pkg/security"
	"github.com/jdziat/method-invoking-jobs/pkg/storage"
)

type (
	// JobDescriptor is the immutable definition of a method-invoking job.
	JobDescriptor = core.JobDescriptor

	// FiringContext is handed to the bridge for one firing.
	FiringContext = core.FiringContext

	// Outcome describes how a firing ended.
	Outcome = core.Outcome

	// Invoker is the fire-time unit a descriptor wraps.
	Invoker = core.Invoker

	// JobListener is notified around firings of descriptors that name it.
	JobListener = core.JobListener

	// ConcurrencyMode says whether firings of a descriptor may overlap.
	ConcurrencyMode = core.ConcurrencyMode

	// FireState is the state of a single firing.
	FireState = core.FireState

	// Event is the interface for all firing events.
	Event = core.Event

	// FiringStarted is emitted right before the target method is invoked.
	FiringStarted = core.FiringStarted

	// FiringSucceeded is emitted when the target method returned without error.
	FiringSucceeded = core.FiringSucceeded

	// FiringFailed is emitted when a firing could not complete.
	FiringFailed = core.FiringFailed

	// ConfigurationError reports a misconfigured job at prepare or build time.
	ConfigurationError = core.ConfigurationError

	// InvocationFailure wraps an error returned or raised by the target method.
	InvocationFailure = core.InvocationFailure

	// PanicError is the cause recorded when the target method panics.
	PanicError = core.PanicError

	// JobMethodInvocationFailedError is the failure the bridge reports to the scheduler.
	JobMethodInvocationFailedError = core.JobMethodInvocationFailedError

	// MissingInvokerError is returned when a firing has nothing to invoke.
	MissingInvokerError = core.MissingInvokerError

	// NoRetryError asks the scheduler to stop firing a job.
	NoRetryError = core.NoRetryError

	// ExecutionRecord is one firing as kept by the history listener.
	ExecutionRecord = core.ExecutionRecord

	// HistoryStorage persists execution records.
	HistoryStorage = core.HistoryStorage

	// MethodResolver binds a target, a method name and static arguments.
	MethodResolver = invoke.MethodResolver

	// InvocationAdapter is the Invoker built from a prepared resolver.
	InvocationAdapter = invoke.InvocationAdapter

	// MethodExporter lets a target expose methods reflection cannot reach.
	MethodExporter = invoke.MethodExporter

	// DescriptorFactory builds descriptors around a bound invoker.
	DescriptorFactory = descriptor.Factory

	// DescriptorOption modifies descriptor options.
	DescriptorOption = descriptor.Option

	// Bridge executes descriptors when the scheduler fires them.
	Bridge = bridge.Bridge

	// BridgeOption configures a Bridge.
	BridgeOption = bridge.Option

	// Scheduler fires descriptors on cron schedules.
	Scheduler = scheduler.Scheduler

	// SchedulerOption configures a Scheduler.
	SchedulerOption = scheduler.Option

	// TriggerInfo describes a registered trigger.
	TriggerInfo = scheduler.TriggerInfo

	// Schedule computes the next firing time.
	Schedule = schedule.Schedule

	// GormHistoryStorage implements HistoryStorage using GORM.
	GormHistoryStorage = storage.GormHistoryStorage

	// HistoryRecorder is a JobListener writing one record per firing.
	HistoryRecorder = history.Recorder

	// HistoryOption configures a HistoryRecorder.
	HistoryOption = history.Option

	// JobFile is a set of YAML job definitions.
	JobFile = config.File
)

// Concurrency modes
const (
	Concurrent    = core.Concurrent
	NonConcurrent = core.NonConcurrent
)

// Fire states
const (
	StateIdle      = core.StateIdle
	StateInvoking  = core.StateInvoking
	StateSucceeded = core.StateSucceeded
	StateFailed    = core.StateFailed
)

// Defaults
const (
	DefaultGroup    = core.DefaultGroup
	HistoryListener = history.DefaultName
)

// Security limits
const (
	MaxJobNameLength      = security.MaxJobNameLength
	MaxListenerNames      = security.MaxListenerNames
	MaxResultSize         = security.MaxResultSize
	MaxErrorMessageLength = security.MaxErrorMessageLength
	MaxHistoryLimit       = security.MaxHistoryLimit
)

// Error variables
var (
	ErrTargetNotSet             = core.ErrTargetNotSet
	ErrMethodNameEmpty          = core.ErrMethodNameEmpty
	ErrMethodNotFound           = core.ErrMethodNotFound
	ErrSignatureMismatch        = core.ErrSignatureMismatch
	ErrNotPrepared              = core.ErrNotPrepared
	ErrInvokerNotBound          = core.ErrInvokerNotBound
	ErrArgumentMismatch         = core.ErrArgumentMismatch
	ErrInvalidJobName           = core.ErrInvalidJobName
	ErrInvalidGroupName         = core.ErrInvalidGroupName
	ErrDescriptorExists         = core.ErrDescriptorExists
	ErrDescriptorNotFound       = core.ErrDescriptorNotFound
	ErrTriggerExists            = core.ErrTriggerExists
	ErrTriggerNotFound          = core.ErrTriggerNotFound
	ErrNonDurableWithoutTrigger = core.ErrNonDurableWithoutTrigger
	ErrExecutionNotFound        = core.ErrExecutionNotFound
)

// NewMethodResolver creates an unprepared resolver.
func NewMethodResolver(target any, method string, arguments ...any) *MethodResolver {
	return invoke.NewMethodResolver(target, method, arguments...)
}

// NewInvocationAdapter wraps a prepared resolver.
func NewInvocationAdapter(r *MethodResolver) (*InvocationAdapter, error) {
	return invoke.NewInvocationAdapter(r)
}

// NewDescriptorFactory creates a factory. Descriptors it builds without an
// explicit JobName are named objectName.
func NewDescriptorFactory(objectName string) *DescriptorFactory {
	return descriptor.NewFactory(objectName)
}

// NewDescriptor resolves method on target and builds a descriptor named
// objectName. Static arguments are given with Arguments.
func NewDescriptor(objectName string, target any, method string, opts ...DescriptorOption) (*JobDescriptor, error) {
	var args []any
	rest := make([]DescriptorOption, 0, len(opts))
	for _, opt := range opts {
		if a, ok := opt.(argumentsOption); ok {
			args = append(args, a...)
			continue
		}
		rest = append(rest, opt)
	}

	f := NewDescriptorFactory(objectName)
	f.SetTarget(target, method, args...)
	if err := f.Prepare(); err != nil {
		return nil, err
	}
	return f.Build(rest...)
}

// argumentsOption carries static arguments through NewDescriptor. The
// factory itself takes them in SetTarget, so Apply is a no-op.
type argumentsOption []any

func (argumentsOption) Apply(*descriptor.Options) {}

// Arguments sets the static arguments passed to the method on every firing.
// Only NewDescriptor understands it.
func Arguments(args ...any) DescriptorOption {
	return argumentsOption(args)
}

// NewBridge creates a bridge.
func NewBridge(opts ...BridgeOption) *Bridge {
	return bridge.New(opts...)
}

// NewScheduler creates a cron scheduler firing through b.
func NewScheduler(b *Bridge, opts ...SchedulerOption) *Scheduler {
	return scheduler.New(b, opts...)
}

// NewHistoryStorage creates a GORM-backed history store.
func NewHistoryStorage(db *gorm.DB) *GormHistoryStorage {
	return storage.NewGormHistoryStorage(db)
}

// NewHistoryRecorder creates a listener that records firings into store.
func NewHistoryRecorder(store HistoryStorage, opts ...HistoryOption) *HistoryRecorder {
	return history.NewRecorder(store, opts...)
}

// LoadJobs reads and validates a YAML job definition file.
func LoadJobs(path string) (*JobFile, error) {
	return config.Load(path)
}

// ParseJobs decodes and validates YAML job definitions.
func ParseJobs(data []byte) (*JobFile, error) {
	return config.Parse(data)
}

// NoRetry wraps an error to ask the scheduler to stop firing the job.
func NoRetry(err error) error {
	return core.NoRetry(err)
}

// IsFatal reports whether err should stop a job from being fired again.
func IsFatal(err error) bool {
	return core.IsFatal(err)
}

// ValidateJobName validates a job or trigger name.
func ValidateJobName(name string) error {
	return security.ValidateJobName(name)
}

// Descriptor option functions

// JobName sets the job name. Without it the factory's object name is used.
func JobName(name string) DescriptorOption {
	return descriptor.Name(name)
}

// JobGroup sets the job group.
func JobGroup(group string) DescriptorOption {
	return descriptor.Group(group)
}

// Description sets a human readable description.
func Description(d string) DescriptorOption {
	return descriptor.Description(d)
}

// AllowConcurrent controls whether overlapping firings are permitted.
func AllowConcurrent(enabled bool) DescriptorOption {
	return descriptor.Concurrent(enabled)
}

// Durable controls whether the descriptor outlives its last trigger.
func Durable(enabled bool) DescriptorOption {
	return descriptor.Durable(enabled)
}

// Listeners names the listeners notified around each firing.
func Listeners(names ...string) DescriptorOption {
	return descriptor.Listeners(names...)
}

// PropagateResult controls whether the return value is written to the firing context.
func PropagateResult(enabled bool) DescriptorOption {
	return descriptor.PropagateResult(enabled)
}

// Bridge option functions

// WithLogger sets the bridge's logger.
func WithLogger(l *slog.Logger) BridgeOption {
	return bridge.WithLogger(l)
}

// WithGlobalListener adds a listener notified for every firing.
func WithGlobalListener(l JobListener) BridgeOption {
	return bridge.WithGlobalListener(l)
}

// Schedule functions

// Every creates a schedule that runs at fixed intervals.
func Every(d time.Duration) Schedule {
	return schedule.Every(d)
}

// Daily creates a schedule that runs at a specific time each day.
func Daily(hour, minute int) Schedule {
	return schedule.Daily(hour, minute)
}

// Weekly creates a schedule that runs at a specific day and time each week.
func Weekly(day time.Weekday, hour, minute int) Schedule {
	return schedule.Weekly(day, hour, minute)
}

// Cron creates a schedule from a cron expression.
func Cron(expr string) Schedule {
	return schedule.Cron(expr)
}

// ParseCron parses a cron expression.
func ParseCron(expr string) (Schedule, error) {
	return schedule.ParseCron(expr)
}

// FiringFromContext returns the current firing, or nil outside a job method.
func FiringFromContext(ctx context.Context) *FiringContext {
	return jobctx.FiringFromContext(ctx)
}

// FireInstanceIDFromContext returns the current fire instance ID, or "".
func FireInstanceIDFromContext(ctx context.Context) string {
	return jobctx.FireInstanceIDFromContext(ctx)
}

// JobKeyFromContext returns the key of the job being fired, or "".
func JobKeyFromContext(ctx context.Context) string {
	return jobctx.JobKeyFromContext(ctx)
}

// LoggerFromContext returns a logger tagged with the current firing.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return jobctx.Logger(ctx)
}
