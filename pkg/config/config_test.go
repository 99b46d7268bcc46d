package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/method-invoking-jobs/pkg/bridge"
	"github.com/jdziat/method-invoking-jobs/pkg/core"
	"github.com/jdziat/method-invoking-jobs/pkg/schedule"
	"github.com/jdziat/method-invoking-jobs/pkg/scheduler"
)

const sampleYAML = `
jobs:
  - id: reportJob
    name: nightly-report
    group: reports
    description: Builds the nightly report
    target: reports
    method: Build
    arguments: ["eu-west", 3]
    concurrent: false
    propagate_result: false
    listeners: [history, audit]
    triggers:
      - name: nightly
        cron: "0 2 * * *"
      - name: frequent
        every: 15m
  - id: cleanup
    target: janitor
    method: Purge
`

type reportService struct {
	region string
	days   int64
}

func (s *reportService) Build(region string, days int64) string {
	s.region, s.days = region, days
	return region
}

type janitor struct{ purged int }

func (j *janitor) Purge() { j.purged++ }

type call struct {
	kind    string
	jobKey  string
	trigger string
	expr    string
}

type fakeRegistrar struct {
	calls  []call
	failOn string // trigger name whose registration fails
}

func (r *fakeRegistrar) DeleteJob(key string) error {
	r.calls = append(r.calls, call{kind: "delete", jobKey: key})
	return nil
}

func (r *fakeRegistrar) AddDescriptor(desc *core.JobDescriptor, _ bool) error {
	r.calls = append(r.calls, call{kind: "add", jobKey: desc.Key()})
	return nil
}

func (r *fakeRegistrar) ScheduleJob(desc *core.JobDescriptor, name string, sched schedule.Schedule) error {
	if name == r.failOn {
		return core.ErrTriggerExists
	}
	r.calls = append(r.calls, call{kind: "every", jobKey: desc.Key(), trigger: name, expr: sched.(interface{ String() string }).String()})
	return nil
}

func (r *fakeRegistrar) ScheduleCron(desc *core.JobDescriptor, name, expr string) error {
	if name == r.failOn {
		return core.ErrTriggerExists
	}
	r.calls = append(r.calls, call{kind: "cron", jobKey: desc.Key(), trigger: name, expr: expr})
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---------------------------------------------------------------------------
// Parse / Load
// ---------------------------------------------------------------------------

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, f.Jobs, 2)

	j := f.Jobs[0]
	assert.Equal(t, "reportJob", j.ID)
	assert.Equal(t, "nightly-report", j.Name)
	assert.Equal(t, "reports", j.Group)
	assert.Equal(t, "Build", j.Method)
	assert.Equal(t, []any{"eu-west", 3}, j.Arguments)
	require.NotNil(t, j.Concurrent)
	assert.False(t, *j.Concurrent)
	assert.Nil(t, j.Durable)
	assert.Equal(t, []string{"history", "audit"}, j.Listeners)
	require.Len(t, j.Triggers, 2)
	assert.Equal(t, "0 2 * * *", j.Triggers[0].Cron)
	assert.Equal(t, "15m", j.Triggers[1].Every)
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, f.Jobs)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("jobs:\n  - id: a\n    target: t\n    method: M\n    retries: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Jobs, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	no := false
	tests := []struct {
		name string
		job  Job
		want string
	}{
		{"missing id", Job{Target: "t", Method: "M"}, "id is required"},
		{"missing target", Job{ID: "a", Method: "M"}, "target is required"},
		{"missing method", Job{ID: "a", Target: "t"}, "method is required"},
		{"non-durable without trigger", Job{ID: "a", Target: "t", Method: "M", Durable: &no}, "non-durable"},
		{"trigger without name", Job{ID: "a", Target: "t", Method: "M", Triggers: []Trigger{{Every: "1m"}}}, "name is required"},
		{"trigger with both", Job{ID: "a", Target: "t", Method: "M", Triggers: []Trigger{{Name: "x", Every: "1m", Cron: "* * * * *"}}}, "not both"},
		{"trigger with neither", Job{ID: "a", Target: "t", Method: "M", Triggers: []Trigger{{Name: "x"}}}, "cron or every is required"},
		{"bad interval", Job{ID: "a", Target: "t", Method: "M", Triggers: []Trigger{{Name: "x", Every: "soon"}}}, "every"},
		{"negative interval", Job{ID: "a", Target: "t", Method: "M", Triggers: []Trigger{{Name: "x", Every: "-1m"}}}, "not positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&File{Jobs: []Job{tt.job}}).Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_Duplicates(t *testing.T) {
	f := &File{Jobs: []Job{
		{ID: "a", Target: "t", Method: "M", Triggers: []Trigger{{Name: "x", Every: "1m"}}},
		{ID: "a", Target: "t", Method: "M", Triggers: []Trigger{{Name: "x", Every: "1m"}}},
	}}

	err := f.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate job DEFAULT.a")
	assert.Contains(t, err.Error(), `duplicate trigger "x"`)
}

func TestValidate_SameIDDifferentGroups(t *testing.T) {
	f := &File{Jobs: []Job{
		{ID: "a", Group: "g1", Target: "t", Method: "M"},
		{ID: "a", Group: "g2", Target: "t", Method: "M"},
	}}
	assert.NoError(t, f.Validate())
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestRegister(t *testing.T) {
	f, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	r := &fakeRegistrar{}
	descs, err := f.Register(r, map[string]any{
		"reports": &reportService{},
		"janitor": &janitor{},
	})
	require.NoError(t, err)
	require.Len(t, descs, 2)

	report := descs[0]
	assert.Equal(t, "reports.nightly-report", report.Key())
	assert.Equal(t, "Builds the nightly report", report.Description())
	assert.True(t, report.ConcurrentExecutionDisallowed())
	assert.True(t, report.Durable())
	assert.False(t, report.PropagateResult())
	assert.Equal(t, []string{"history", "audit"}, report.ListenerNames())

	cleanup := descs[1]
	assert.Equal(t, "DEFAULT.cleanup", cleanup.Key())
	assert.False(t, cleanup.ConcurrentExecutionDisallowed())

	assert.Equal(t, []call{
		{kind: "cron", jobKey: "reports.nightly-report", trigger: "nightly", expr: "0 2 * * *"},
		{kind: "every", jobKey: "reports.nightly-report", trigger: "frequent", expr: "every 15m0s"},
		{kind: "add", jobKey: "DEFAULT.cleanup"},
	}, r.calls)
}

func TestRegister_StaticArgumentsReachMethod(t *testing.T) {
	f, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	svc := &reportService{}
	descs, err := f.Register(&fakeRegistrar{}, map[string]any{"reports": svc, "janitor": &janitor{}})
	require.NoError(t, err)

	result, err := descs[0].Invoker().Invoke(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "eu-west", result)
	assert.Equal(t, int64(3), svc.days, "YAML ints convert to the parameter type")
}

func TestRegister_UnknownTarget(t *testing.T) {
	f := &File{Jobs: []Job{{ID: "a", Target: "nope", Method: "Purge"}}}

	_, err := f.Register(&fakeRegistrar{}, map[string]any{})
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), `unknown target "nope"`)
}

func TestRegister_UnknownMethod(t *testing.T) {
	f := &File{Jobs: []Job{{ID: "a", Target: "janitor", Method: "Sweep"}}}

	_, err := f.Register(&fakeRegistrar{}, map[string]any{"janitor": &janitor{}})
	assert.ErrorIs(t, err, core.ErrMethodNotFound)
}

func TestRegister_WithScheduler(t *testing.T) {
	f, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	j := &janitor{}
	s := scheduler.New(bridge.New(bridge.WithLogger(quietLogger())), scheduler.WithLogger(quietLogger()))
	_, err = f.Register(s, map[string]any{"reports": &reportService{}, "janitor": j})
	require.NoError(t, err)

	assert.Len(t, s.Descriptors(), 2)
	assert.Len(t, s.Triggers("reports.nightly-report"), 2)

	require.NoError(t, s.TriggerNow(context.Background(), "DEFAULT.cleanup"))
	assert.Equal(t, 1, j.purged)

	// Registering twice collides on trigger names and leaves the first
	// registration untouched.
	_, err = f.Register(s, map[string]any{"reports": &reportService{}, "janitor": j})
	assert.ErrorIs(t, err, core.ErrTriggerExists)
	assert.Len(t, s.Descriptors(), 2)
	assert.Len(t, s.Triggers("reports.nightly-report"), 2)
}

func TestRegister_FailureRollsBack(t *testing.T) {
	f, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	r := &fakeRegistrar{failOn: "frequent"}
	descs, err := f.Register(r, map[string]any{"reports": &reportService{}, "janitor": &janitor{}})
	assert.ErrorIs(t, err, core.ErrTriggerExists)
	assert.Nil(t, descs)

	require.Len(t, r.calls, 2)
	assert.Equal(t, call{kind: "cron", jobKey: "reports.nightly-report", trigger: "nightly", expr: "0 2 * * *"}, r.calls[0])
	assert.Equal(t, call{kind: "delete", jobKey: "reports.nightly-report"}, r.calls[1])
}

func TestRegister_FailureRollsBackScheduler(t *testing.T) {
	f, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	// janitor is missing, so the second job fails after the first is scheduled.
	s := scheduler.New(bridge.New(bridge.WithLogger(quietLogger())), scheduler.WithLogger(quietLogger()))
	_, err = f.Register(s, map[string]any{"reports": &reportService{}})
	assert.ErrorIs(t, err, core.ErrTargetNotSet)

	assert.Empty(t, s.Descriptors())
	assert.Empty(t, s.Triggers("reports.nightly-report"))
}
