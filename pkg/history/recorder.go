package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jdziat/method-invoking-jobs/pkg/core"
	"github.com/jdziat/method-invoking-jobs/pkg/internal/retry"
)

// Recorder is a core.JobListener that writes one ExecutionRecord per firing.
// Storage failures are logged; they never fail the firing.
type Recorder struct {
	store  core.HistoryStorage
	opts   *Options
	logger *slog.Logger
	retry  retry.Config
}

var _ core.JobListener = (*Recorder)(nil)

// NewRecorder creates a recorder writing to store.
func NewRecorder(store core.HistoryStorage, opts ...Option) *Recorder {
	o := NewOptions()
	for _, opt := range opts {
		opt.Apply(o)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	rc := retry.DefaultConfig()
	rc.MaxAttempts = o.MaxAttempts

	return &Recorder{
		store:  store,
		opts:   o,
		logger: o.Logger.With("listener", o.Name),
		retry:  rc,
	}
}

// Name implements core.JobListener.
func (r *Recorder) Name() string {
	return r.opts.Name
}

// JobToBeExecuted implements core.JobListener. Records are written once the
// outcome is known.
func (r *Recorder) JobToBeExecuted(context.Context, *core.FiringContext) {}

// JobWasExecuted implements core.JobListener.
func (r *Recorder) JobWasExecuted(ctx context.Context, _ *core.FiringContext, outcome *core.Outcome) {
	if outcome == nil {
		return
	}
	rec := r.record(outcome)

	// The firing's context may already be cancelled by a stopping scheduler;
	// the record is still worth keeping.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.WriteTimeout)
	defer cancel()

	err := retry.Do(writeCtx, r.retry, func(ctx context.Context) error {
		return r.store.Record(ctx, rec)
	})
	if err != nil {
		r.logger.Error("failed to record execution",
			"job_key", rec.JobKey,
			"fire_id", rec.FireInstanceID,
			"error", err,
		)
	}
}

func (r *Recorder) record(o *core.Outcome) *core.ExecutionRecord {
	rec := &core.ExecutionRecord{
		FireInstanceID: o.FireInstanceID,
		JobKey:         o.JobKey,
		TriggerName:    o.TriggerName,
		State:          o.State,
		StartedAt:      o.StartedAt,
		Duration:       o.Duration,
	}
	if o.Err != nil {
		rec.Error = o.Err.Error()
	}
	if o.Result != nil {
		rec.Result = r.encode(o)
	}
	return rec
}

func (r *Recorder) encode(o *core.Outcome) []byte {
	data, err := json.Marshal(o.Result)
	if err != nil {
		r.logger.Warn("result not recorded: not JSON encodable",
			"job_key", o.JobKey, "type", fmt.Sprintf("%T", o.Result), "error", err)
		return nil
	}
	if len(data) > r.opts.MaxResultSize {
		r.logger.Warn("result not recorded: too large",
			"job_key", o.JobKey, "size", len(data), "max", r.opts.MaxResultSize)
		return nil
	}
	return data
}

// Recent returns the newest records of a job.
func (r *Recorder) Recent(ctx context.Context, jobKey string, limit int) ([]*core.ExecutionRecord, error) {
	return r.store.ListByJob(ctx, jobKey, limit)
}

// Prune deletes records older than retention and returns how many were removed.
func (r *Recorder) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := r.store.Prune(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.logger.Info("pruned execution history", "deleted", n, "retention", retention)
	}
	return n, nil
}
