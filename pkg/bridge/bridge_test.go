package bridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/method-invoking-jobs/pkg/core"
	"github.com/jdziat/method-invoking-jobs/pkg/descriptor"
	"github.com/jdziat/method-invoking-jobs/pkg/invoke"
	"github.com/jdziat/method-invoking-jobs/pkg/jobctx"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var errInvoke = errors.New("invoke failed")

type countingJob struct {
	counter atomic.Int64
	fireID  atomic.Value
}

func (j *countingJob) Invoke() {
	j.counter.Add(1)
}

func (j *countingJob) InvokeAndReturnError() error {
	j.counter.Add(1)
	return errInvoke
}

func (j *countingJob) InvokeAndPanic() {
	j.counter.Add(1)
	panic("kaboom")
}

func (j *countingJob) InvokeWithReturnValue() string {
	j.counter.Add(1)
	return "return value"
}

func (j *countingJob) InvokeWithContext(ctx context.Context) {
	j.fireID.Store(jobctx.FireInstanceIDFromContext(ctx))
}

type recordingListener struct {
	name string

	mu       sync.Mutex
	before   []string
	after    []*core.Outcome
	panicky  bool
	sawFired bool
}

func (l *recordingListener) Name() string { return l.name }

func (l *recordingListener) JobToBeExecuted(ctx context.Context, fc *core.FiringContext) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.before = append(l.before, fc.FireInstanceID)
	l.sawFired = jobctx.FiringFromContext(ctx) == fc
	if l.panicky {
		panic("listener exploded")
	}
}

func (l *recordingListener) JobWasExecuted(_ context.Context, _ *core.FiringContext, outcome *core.Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.after = append(l.after, outcome)
}

func (l *recordingListener) outcomes() []*core.Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*core.Outcome(nil), l.after...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBridge(opts ...Option) *Bridge {
	return New(append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func mustDescriptor(t *testing.T, target any, method string, opts ...descriptor.Option) *core.JobDescriptor {
	t.Helper()
	desc, err := descriptor.New("reportFactory", target, method, opts...)
	require.NoError(t, err)
	return desc
}

func firing(desc *core.JobDescriptor) *core.FiringContext {
	return &core.FiringContext{
		FireInstanceID: "fire-1",
		TriggerName:    "trigger",
		FireTime:       time.Now(),
		Descriptor:     desc,
	}
}

// ---------------------------------------------------------------------------
// Successful firings
// ---------------------------------------------------------------------------

func TestOnFire_InvokesMethod(t *testing.T) {
	b := newBridge()
	job := &countingJob{}
	desc := mustDescriptor(t, job, "Invoke")

	require.NoError(t, b.OnFire(context.Background(), firing(desc)))
	assert.Equal(t, int64(1), job.counter.Load())
}

func TestOnFire_RepeatedFiringsCount(t *testing.T) {
	b := newBridge()
	job := &countingJob{}
	desc := mustDescriptor(t, job, "Invoke")

	for i := 0; i < 3; i++ {
		require.NoError(t, b.OnFire(context.Background(), firing(desc)))
	}
	assert.Equal(t, int64(3), job.counter.Load())
}

func TestOnFire_PropagatesResult(t *testing.T) {
	b := newBridge()
	desc := mustDescriptor(t, &countingJob{}, "InvokeWithReturnValue")
	fc := firing(desc)

	require.NoError(t, b.OnFire(context.Background(), fc))
	assert.True(t, fc.HasResult())
	assert.Equal(t, "return value", fc.Result())
}

func TestOnFire_VoidMethodWritesNilResult(t *testing.T) {
	b := newBridge()
	desc := mustDescriptor(t, &countingJob{}, "Invoke")
	fc := firing(desc)

	require.NoError(t, b.OnFire(context.Background(), fc))
	assert.True(t, fc.HasResult())
	assert.Nil(t, fc.Result())
}

func TestOnFire_ResultPropagationDisabled(t *testing.T) {
	b := newBridge()
	desc := mustDescriptor(t, &countingJob{}, "InvokeWithReturnValue", descriptor.PropagateResult(false))
	fc := firing(desc)

	require.NoError(t, b.OnFire(context.Background(), fc))
	assert.False(t, fc.HasResult())
	assert.Nil(t, fc.Result())
}

func TestOnFire_ContextCarriesFiring(t *testing.T) {
	b := newBridge()
	job := &countingJob{}
	desc := mustDescriptor(t, job, "InvokeWithContext")

	require.NoError(t, b.OnFire(context.Background(), firing(desc)))
	assert.Equal(t, "fire-1", job.fireID.Load())
}

// ---------------------------------------------------------------------------
// Failures
// ---------------------------------------------------------------------------

func TestOnFire_MethodErrorBecomesJobFailure(t *testing.T) {
	b := newBridge()
	job := &countingJob{}
	desc := mustDescriptor(t, job, "InvokeAndReturnError")
	fc := firing(desc)

	err := b.OnFire(context.Background(), fc)
	require.Error(t, err)

	var failed *core.JobMethodInvocationFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, desc.Key(), failed.JobKey)
	assert.Equal(t, "InvokeAndReturnError", failed.Method)
	assert.Same(t, errInvoke, failed.Cause)
	assert.ErrorIs(t, err, errInvoke)

	// The method still ran.
	assert.Equal(t, int64(1), job.counter.Load())
	assert.False(t, fc.HasResult())
}

func TestOnFire_FailureIsNotDoubleWrapped(t *testing.T) {
	b := newBridge()
	desc := mustDescriptor(t, &countingJob{}, "InvokeAndReturnError")

	err := b.OnFire(context.Background(), firing(desc))

	var failure *core.InvocationFailure
	assert.False(t, errors.As(err, &failure), "InvocationFailure should be unwrapped into the job failure")
}

func TestOnFire_PanicBecomesJobFailure(t *testing.T) {
	b := newBridge()
	job := &countingJob{}
	desc := mustDescriptor(t, job, "InvokeAndPanic")

	err := b.OnFire(context.Background(), firing(desc))

	var failed *core.JobMethodInvocationFailedError
	require.ErrorAs(t, err, &failed)
	var pe *core.PanicError
	require.ErrorAs(t, failed.Cause, &pe)
	assert.Equal(t, "kaboom", pe.Value)
	assert.Equal(t, int64(1), job.counter.Load())
}

type bareInvoker struct{ err error }

func (i bareInvoker) Invoke(context.Context) (any, error) { return nil, i.err }

func TestOnFire_PlainInvokerErrorKeptAsCause(t *testing.T) {
	b := newBridge()
	desc := core.NewJobDescriptor(core.DescriptorSpec{Name: "plain", Invoker: bareInvoker{err: errInvoke}})

	err := b.OnFire(context.Background(), firing(desc))

	var failed *core.JobMethodInvocationFailedError
	require.ErrorAs(t, err, &failed)
	assert.Empty(t, failed.Method)
	assert.Same(t, errInvoke, failed.Cause)
}

func TestOnFire_MissingInvoker(t *testing.T) {
	l := &recordingListener{name: "Foo"}
	b := newBridge(WithGlobalListener(l))
	desc := core.NewJobDescriptor(core.DescriptorSpec{Name: "empty"})

	err := b.OnFire(context.Background(), firing(desc))

	var missing *core.MissingInvokerError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "DEFAULT.empty", missing.JobKey)
	assert.True(t, core.IsFatal(err))
	assert.Empty(t, l.before, "listeners are not notified when nothing can run")
}

func TestOnFire_UnusableInvokerIsMissing(t *testing.T) {
	cases := map[string]core.Invoker{
		"typed nil":  (*invoke.InvocationAdapter)(nil),
		"zero value": &invoke.InvocationAdapter{},
	}
	for name, inv := range cases {
		t.Run(name, func(t *testing.T) {
			l := &recordingListener{name: "Foo"}
			b := newBridge(WithGlobalListener(l))
			desc := core.NewJobDescriptor(core.DescriptorSpec{Name: "broken", Invoker: inv})

			var err error
			require.NotPanics(t, func() {
				err = b.OnFire(context.Background(), firing(desc))
			})

			var missing *core.MissingInvokerError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, "DEFAULT.broken", missing.JobKey)
			assert.True(t, core.IsFatal(err))
			assert.Empty(t, l.before)
		})
	}
}

func TestOnFire_MissingDescriptor(t *testing.T) {
	b := newBridge()

	err := b.OnFire(context.Background(), &core.FiringContext{FireInstanceID: "x"})
	var missing *core.MissingInvokerError
	require.ErrorAs(t, err, &missing)
	assert.Empty(t, missing.JobKey)

	err = b.OnFire(context.Background(), nil)
	require.ErrorAs(t, err, &missing)
}

// ---------------------------------------------------------------------------
// Listeners
// ---------------------------------------------------------------------------

func TestOnFire_NotifiesNamedListeners(t *testing.T) {
	foo := &recordingListener{name: "Foo"}
	bar := &recordingListener{name: "Bar"}
	other := &recordingListener{name: "Other"}
	b := newBridge()
	require.NoError(t, b.RegisterListener(foo))
	require.NoError(t, b.RegisterListener(bar))
	require.NoError(t, b.RegisterListener(other))

	desc := mustDescriptor(t, &countingJob{}, "InvokeWithReturnValue", descriptor.Listeners("Foo", "Bar", "Missing"))
	require.NoError(t, b.OnFire(context.Background(), firing(desc)))

	for _, l := range []*recordingListener{foo, bar} {
		assert.Equal(t, []string{"fire-1"}, l.before)
		assert.True(t, l.sawFired)
		outcomes := l.outcomes()
		require.Len(t, outcomes, 1)
		assert.Equal(t, core.StateSucceeded, outcomes[0].State)
		assert.Equal(t, "return value", outcomes[0].Result)
	}
	assert.Empty(t, other.before)
}

func TestOnFire_GlobalListenerSeesFailure(t *testing.T) {
	global := &recordingListener{name: "global"}
	b := newBridge(WithGlobalListener(global))
	desc := mustDescriptor(t, &countingJob{}, "InvokeAndReturnError")

	err := b.OnFire(context.Background(), firing(desc))
	require.Error(t, err)

	outcomes := global.outcomes()
	require.Len(t, outcomes, 1)
	assert.Equal(t, core.StateFailed, outcomes[0].State)
	assert.Equal(t, err, outcomes[0].Err)
	assert.Equal(t, desc.Key(), outcomes[0].JobKey)
}

func TestOnFire_PanickingListenerDoesNotFailFiring(t *testing.T) {
	bad := &recordingListener{name: "bad", panicky: true}
	b := newBridge()
	require.NoError(t, b.RegisterListener(bad))
	job := &countingJob{}
	desc := mustDescriptor(t, job, "Invoke", descriptor.Listeners("bad"))

	require.NoError(t, b.OnFire(context.Background(), firing(desc)))
	assert.Equal(t, int64(1), job.counter.Load())
	assert.Len(t, bad.outcomes(), 1)
}

func TestRegisterListener_Validation(t *testing.T) {
	b := newBridge()
	assert.ErrorIs(t, b.RegisterListener(nil), core.ErrInvalidListenerName)
	assert.ErrorIs(t, b.RegisterListener(&recordingListener{}), core.ErrInvalidListenerName)
}

func TestRemoveListener(t *testing.T) {
	l := &recordingListener{name: "Foo"}
	b := newBridge()
	require.NoError(t, b.RegisterListener(l))

	assert.True(t, b.RemoveListener("Foo"))
	assert.False(t, b.RemoveListener("Foo"))

	desc := mustDescriptor(t, &countingJob{}, "Invoke", descriptor.Listeners("Foo"))
	require.NoError(t, b.OnFire(context.Background(), firing(desc)))
	assert.Empty(t, l.before)
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

func TestEvents_SuccessSequence(t *testing.T) {
	b := newBridge()
	events := b.Events()
	defer b.Unsubscribe(events)

	desc := mustDescriptor(t, &countingJob{}, "InvokeWithReturnValue")
	require.NoError(t, b.OnFire(context.Background(), firing(desc)))

	started, ok := (<-events).(*core.FiringStarted)
	require.True(t, ok)
	assert.Equal(t, "fire-1", started.FireInstanceID)
	assert.Equal(t, "trigger", started.TriggerName)

	succeeded, ok := (<-events).(*core.FiringSucceeded)
	require.True(t, ok)
	assert.Equal(t, "return value", succeeded.Result)
	assert.Equal(t, desc.Key(), succeeded.JobKey)
}

func TestEvents_FailureSequence(t *testing.T) {
	b := newBridge()
	events := b.Events()
	defer b.Unsubscribe(events)

	desc := mustDescriptor(t, &countingJob{}, "InvokeAndReturnError")
	err := b.OnFire(context.Background(), firing(desc))

	_, ok := (<-events).(*core.FiringStarted)
	require.True(t, ok)
	failed, ok := (<-events).(*core.FiringFailed)
	require.True(t, ok)
	assert.Equal(t, err, failed.Error)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	b := newBridge()
	events := b.Events()
	b.Unsubscribe(events)

	desc := mustDescriptor(t, &countingJob{}, "Invoke")
	require.NoError(t, b.OnFire(context.Background(), firing(desc)))

	select {
	case e := <-events:
		t.Fatalf("unexpected event after unsubscribe: %T", e)
	default:
	}
}

// ---------------------------------------------------------------------------
// Concurrency
// ---------------------------------------------------------------------------

func TestOnFire_ConcurrentFirings(t *testing.T) {
	b := newBridge()
	job := &countingJob{}
	desc := mustDescriptor(t, job, "Invoke")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, b.OnFire(context.Background(), firing(desc)))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), job.counter.Load())
}
