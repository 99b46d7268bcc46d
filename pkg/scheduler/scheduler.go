package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/jdziat/method-invoking-jobs/pkg/core"
	"github.com/jdziat/method-invoking-jobs/pkg/schedule"
	"github.com/jdziat/method-invoking-jobs/pkg/security"
)

// Firer runs one firing. *bridge.Bridge implements it.
type Firer interface {
	OnFire(ctx context.Context, fc *core.FiringContext) error
}

// TriggerInfo describes a registered trigger.
type TriggerInfo struct {
	Name     string
	JobKey   string
	Schedule schedule.Schedule
	Next     time.Time
	Prev     time.Time
}

type jobEntry struct {
	desc     *core.JobDescriptor
	triggers map[string]struct{}

	// serializes firings of NonConcurrent descriptors across all triggers
	running sync.Mutex
}

type trigger struct {
	name     string
	jobKey   string
	schedule schedule.Schedule
	entryID  cron.EntryID
}

// Scheduler stores descriptors and their triggers and hands each firing to
// a Firer.
type Scheduler struct {
	firer   Firer
	logger  *slog.Logger
	seconds bool
	cron    *cron.Cron

	mu       sync.Mutex
	jobs     map[string]*jobEntry
	triggers map[string]*trigger
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a scheduler that fires through f.
func New(f Firer, opts ...Option) *Scheduler {
	cfg := config{}
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.loc == nil {
		cfg.loc = time.Local
	}

	logger := cfg.logger.With("component", "scheduler")
	cl := cronLogger{log: logger}

	return &Scheduler{
		firer:   f,
		logger:  logger,
		seconds: cfg.seconds,
		cron: cron.New(
			cron.WithLocation(cfg.loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		jobs:     make(map[string]*jobEntry),
		triggers: make(map[string]*trigger),
		ctx:      context.Background(),
	}
}

// AddDescriptor stores desc without scheduling it. A descriptor stored
// without triggers must be durable. An existing descriptor with the same key
// is only replaced when replace is set; its triggers then fire the new one.
func (s *Scheduler) AddDescriptor(desc *core.JobDescriptor, replace bool) error {
	if err := checkDescriptor(desc); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := desc.Key()
	existing, ok := s.jobs[key]
	if ok && !replace {
		return fmt.Errorf("%w: %s", core.ErrDescriptorExists, key)
	}
	if !desc.Durable() && (!ok || len(existing.triggers) == 0) {
		return fmt.Errorf("%w: %s", core.ErrNonDurableWithoutTrigger, key)
	}

	if ok {
		existing.desc = desc
		s.logger.Info("replaced job descriptor", "job_key", key)
		return nil
	}
	s.jobs[key] = &jobEntry{desc: desc, triggers: make(map[string]struct{})}
	s.logger.Info("added job descriptor", "job_key", key)
	return nil
}

// ScheduleJob registers a trigger named triggerName that fires desc on sched.
// desc is stored if its key is new; a different descriptor already stored
// under the same key is an error. An empty triggerName gets a generated one.
func (s *Scheduler) ScheduleJob(desc *core.JobDescriptor, triggerName string, sched schedule.Schedule) error {
	if err := checkDescriptor(desc); err != nil {
		return err
	}
	if sched == nil {
		return &core.ConfigurationError{Op: "schedule", Err: fmt.Errorf("trigger %q has no schedule", triggerName)}
	}
	if triggerName == "" {
		triggerName = desc.Name() + "-" + uuid.NewString()[:8]
	}
	if err := security.ValidateJobName(triggerName); err != nil {
		return &core.ConfigurationError{Op: "schedule", Err: fmt.Errorf("trigger %q: %w", triggerName, err)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.triggers[triggerName]; ok {
		return fmt.Errorf("%w: %s", core.ErrTriggerExists, triggerName)
	}

	key := desc.Key()
	entry, ok := s.jobs[key]
	if ok && entry.desc != desc {
		return fmt.Errorf("%w: %s", core.ErrDescriptorExists, key)
	}
	if !ok {
		entry = &jobEntry{desc: desc, triggers: make(map[string]struct{})}
		s.jobs[key] = entry
	}

	t := &trigger{name: triggerName, jobKey: key, schedule: sched}
	t.entryID = s.cron.Schedule(sched, cron.FuncJob(func() {
		_ = s.fire(s.firingContext(), t.name, t.jobKey)
	}))
	s.triggers[triggerName] = t
	entry.triggers[triggerName] = struct{}{}

	s.logger.Info("scheduled job", "job_key", key, "trigger", triggerName, "schedule", describe(sched))
	return nil
}

// ScheduleCron is ScheduleJob with a cron expression. With WithSeconds the
// expression may carry a leading seconds field.
func (s *Scheduler) ScheduleCron(desc *core.JobDescriptor, triggerName, expr string) error {
	parse := schedule.ParseCron
	if s.seconds {
		parse = schedule.ParseCronWithSeconds
	}
	sched, err := parse(expr)
	if err != nil {
		return &core.ConfigurationError{Op: "schedule", Err: err}
	}
	return s.ScheduleJob(desc, triggerName, sched)
}

// Unschedule removes a trigger. A non-durable descriptor left without
// triggers is removed as well.
func (s *Scheduler) Unschedule(triggerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unscheduleLocked(triggerName)
}

func (s *Scheduler) unscheduleLocked(triggerName string) error {
	t, ok := s.triggers[triggerName]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrTriggerNotFound, triggerName)
	}
	s.cron.Remove(t.entryID)
	delete(s.triggers, triggerName)

	entry, ok := s.jobs[t.jobKey]
	if !ok {
		return nil
	}
	delete(entry.triggers, triggerName)
	s.logger.Info("unscheduled trigger", "job_key", t.jobKey, "trigger", triggerName)

	if len(entry.triggers) == 0 && !entry.desc.Durable() {
		delete(s.jobs, t.jobKey)
		s.logger.Info("removed non-durable job descriptor", "job_key", t.jobKey)
	}
	return nil
}

// DeleteJob removes a descriptor and all of its triggers.
func (s *Scheduler) DeleteJob(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[key]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrDescriptorNotFound, key)
	}
	for name := range entry.triggers {
		if t, ok := s.triggers[name]; ok {
			s.cron.Remove(t.entryID)
			delete(s.triggers, name)
		}
	}
	delete(s.jobs, key)
	s.logger.Info("deleted job descriptor", "job_key", key)
	return nil
}

// Descriptor returns the descriptor stored under key.
func (s *Scheduler) Descriptor(key string) (*core.JobDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.jobs[key]
	if !ok {
		return nil, false
	}
	return entry.desc, true
}

// Descriptors returns all stored descriptors ordered by key.
func (s *Scheduler) Descriptors() []*core.JobDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*core.JobDescriptor, 0, len(s.jobs))
	for _, entry := range s.jobs {
		out = append(out, entry.desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Triggers returns the triggers of a descriptor ordered by name.
func (s *Scheduler) Triggers(key string) []TriggerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[key]
	if !ok {
		return nil
	}
	out := make([]TriggerInfo, 0, len(entry.triggers))
	for name := range entry.triggers {
		t := s.triggers[name]
		e := s.cron.Entry(t.entryID)
		out = append(out, TriggerInfo{
			Name:     t.name,
			JobKey:   t.jobKey,
			Schedule: t.schedule,
			Next:     e.Next,
			Prev:     e.Prev,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TriggerNow fires the descriptor stored under key once, synchronously, on
// the same path scheduled firings take.
func (s *Scheduler) TriggerNow(ctx context.Context, key string) error {
	return s.fire(ctx, "manual", key)
}

// Start begins firing scheduled triggers. Firings run with a context derived
// from ctx that is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", "jobs", len(s.jobs), "triggers", len(s.triggers))
	return nil
}

// Stop stops firing triggers and waits for running firings to return or ctx
// to expire, then cancels the firings' context.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return core.ErrSchedulerNotStarted
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	defer cancel()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timeout, cancelling running firings")
		return ctx.Err()
	}
}

func (s *Scheduler) firingContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// fire builds a FiringContext and hands it to the firer. Fatal errors
// unschedule every trigger of the descriptor.
func (s *Scheduler) fire(ctx context.Context, triggerName, key string) error {
	s.mu.Lock()
	entry, ok := s.jobs[key]
	var desc *core.JobDescriptor
	if ok {
		desc = entry.desc
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrDescriptorNotFound, key)
	}

	fc := &core.FiringContext{
		FireInstanceID: uuid.NewString(),
		TriggerName:    triggerName,
		TriggerGroup:   desc.Group(),
		FireTime:       time.Now(),
		Descriptor:     desc,
	}

	if desc.ConcurrentExecutionDisallowed() {
		entry.running.Lock()
		defer entry.running.Unlock()
	}

	err := s.firer.OnFire(ctx, fc)
	if err == nil {
		return nil
	}

	if core.IsFatal(err) {
		s.logger.Error("fatal job error, unscheduling triggers",
			"job_key", key,
			"trigger", triggerName,
			"fire_id", fc.FireInstanceID,
			"error", err,
		)
		s.unscheduleAll(key)
		return err
	}

	s.logger.Debug("firing failed, trigger stays scheduled",
		"job_key", key,
		"trigger", triggerName,
		"fire_id", fc.FireInstanceID,
	)
	return err
}

func (s *Scheduler) unscheduleAll(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[key]
	if !ok {
		return
	}
	for name := range entry.triggers {
		_ = s.unscheduleLocked(name)
	}
}

// checkDescriptor rejects descriptors whose key could name another
// group/name pair. Descriptors built by descriptor.Factory always pass.
func checkDescriptor(desc *core.JobDescriptor) error {
	if desc == nil {
		return core.ErrNilDescriptor
	}
	if err := security.ValidateGroupName(desc.Group()); err != nil {
		return &core.ConfigurationError{Op: "schedule", Err: fmt.Errorf("group %q: %w", desc.Group(), err)}
	}
	return nil
}

func describe(sched schedule.Schedule) string {
	if str, ok := sched.(fmt.Stringer); ok {
		return str.String()
	}
	return fmt.Sprintf("%T", sched)
}
