package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jdziat/method-invoking-jobs/pkg/core"
	intctx "github.com/jdziat/method-invoking-jobs/pkg/internal/context"
)

// Bridge is the entry point the scheduler calls when a trigger fires. It
// starts no goroutines and does not serialize firings; honoring
// core.NonConcurrent is the scheduler's job.
type Bridge struct {
	logger *slog.Logger

	mu        sync.RWMutex
	listeners map[string]core.JobListener
	global    []core.JobListener
	eventSubs []chan core.Event
}

// New creates a bridge.
func New(opts ...Option) *Bridge {
	cfg := config{}
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	return &Bridge{
		logger:    cfg.logger,
		listeners: make(map[string]core.JobListener),
		global:    cfg.global,
	}
}

// Logger returns the bridge's logger.
func (b *Bridge) Logger() *slog.Logger {
	return b.logger
}

// RegisterListener makes l available to descriptors that name it. A listener
// registered under an existing name replaces it.
func (b *Bridge) RegisterListener(l core.JobListener) error {
	if l == nil || l.Name() == "" {
		return core.ErrInvalidListenerName
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.listeners[l.Name()]; ok {
		b.logger.Warn("replacing job listener", "listener", l.Name())
	}
	b.listeners[l.Name()] = l
	return nil
}

// RemoveListener unregisters a named listener.
func (b *Bridge) RemoveListener(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.listeners[name]
	delete(b.listeners, name)
	return ok
}

// OnFire runs the descriptor attached to fc. A descriptor without an invoker
// fails with *core.MissingInvokerError before anything is invoked. A failing
// method yields exactly one *core.JobMethodInvocationFailedError. On success
// the return value is written to fc when the descriptor propagates results.
func (b *Bridge) OnFire(ctx context.Context, fc *core.FiringContext) error {
	if fc == nil || fc.Descriptor == nil || core.InvokerMissing(fc.Descriptor.Invoker()) {
		err := &core.MissingInvokerError{}
		fireID := ""
		if fc != nil {
			err.JobKey = fc.JobKey()
			fireID = fc.FireInstanceID
		}
		b.logger.Error("job has no invoker", "job_key", err.JobKey, "fire_id", fireID)
		b.Emit(&core.FiringFailed{FireInstanceID: fireID, JobKey: err.JobKey, Error: err, Timestamp: time.Now()})
		return err
	}

	desc := fc.Descriptor
	logger := b.logger.With("job_key", desc.Key(), "fire_id", fc.FireInstanceID)
	listeners := b.listenersFor(desc, logger)

	fireCtx := intctx.WithFiring(ctx, &intctx.Firing{Context: fc, Logger: logger})

	for _, l := range listeners {
		b.notify(logger, l, func() { l.JobToBeExecuted(fireCtx, fc) })
	}

	startTime := time.Now()
	b.Emit(&core.FiringStarted{
		FireInstanceID: fc.FireInstanceID,
		JobKey:         desc.Key(),
		TriggerName:    fc.TriggerName,
		Timestamp:      startTime,
	})

	result, err := desc.Invoker().Invoke(fireCtx)
	duration := time.Since(startTime)

	outcome := &core.Outcome{
		FireInstanceID: fc.FireInstanceID,
		JobKey:         desc.Key(),
		TriggerName:    fc.TriggerName,
		Result:         result,
		StartedAt:      startTime,
		Duration:       duration,
	}

	if err != nil {
		failed := translate(desc, err)
		outcome.State = core.StateFailed
		outcome.Err = failed
		logger.Warn("job method invocation failed", "duration", duration, "error", failed)
		b.Emit(&core.FiringFailed{
			FireInstanceID: fc.FireInstanceID,
			JobKey:         desc.Key(),
			Error:          failed,
			Duration:       duration,
			Timestamp:      time.Now(),
		})
		for _, l := range listeners {
			b.notify(logger, l, func() { l.JobWasExecuted(fireCtx, fc, outcome) })
		}
		return failed
	}

	if desc.PropagateResult() {
		fc.SetResult(result)
	}
	outcome.State = core.StateSucceeded
	logger.Debug("job executed", "duration", duration)
	b.Emit(&core.FiringSucceeded{
		FireInstanceID: fc.FireInstanceID,
		JobKey:         desc.Key(),
		Result:         result,
		Duration:       duration,
		Timestamp:      time.Now(),
	})
	for _, l := range listeners {
		b.notify(logger, l, func() { l.JobWasExecuted(fireCtx, fc, outcome) })
	}
	return nil
}

// translate turns an invoker error into the scheduler-facing fault, unwrapping
// an InvocationFailure once so the original cause is carried.
func translate(desc *core.JobDescriptor, err error) error {
	failed := &core.JobMethodInvocationFailedError{JobKey: desc.Key(), Cause: err}
	var failure *core.InvocationFailure
	if errors.As(err, &failure) {
		failed.Method = failure.Method
		failed.Cause = failure.Cause
	}
	return failed
}

func (b *Bridge) listenersFor(desc *core.JobDescriptor, logger *slog.Logger) []core.JobListener {
	names := desc.ListenerNames()

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.JobListener, 0, len(b.global)+len(names))
	out = append(out, b.global...)
	for _, name := range names {
		l, ok := b.listeners[name]
		if !ok {
			logger.Warn("job listener not registered", "listener", name)
			continue
		}
		out = append(out, l)
	}
	return out
}

// notify runs a listener callback; a panicking listener never fails the firing.
func (b *Bridge) notify(logger *slog.Logger, l core.JobListener, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job listener panicked",
				"listener", l.Name(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn()
}

// Events returns a channel for receiving firing events.
// The caller must call Unsubscribe when done to prevent resource leaks.
func (b *Bridge) Events() <-chan core.Event {
	ch := make(chan core.Event, 100)
	b.mu.Lock()
	b.eventSubs = append(b.eventSubs, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel created by Events().
// The channel is not closed.
func (b *Bridge) Unsubscribe(ch <-chan core.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.eventSubs {
		if sub == ch {
			b.eventSubs = append(b.eventSubs[:i], b.eventSubs[i+1:]...)
			return
		}
	}
}

// Emit emits an event to all subscribers.
func (b *Bridge) Emit(e core.Event) {
	b.mu.RLock()
	subs := make([]chan core.Event, len(b.eventSubs))
	copy(subs, b.eventSubs)
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
			// Drop if full - this prevents blocking on slow consumers
		}
	}
}
