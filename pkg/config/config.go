package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jdziat/method-invoking-jobs/pkg/core"
	"github.com/jdziat/method-invoking-jobs/pkg/descriptor"
	"github.com/jdziat/method-invoking-jobs/pkg/schedule"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("methodjobs: invalid job definitions")

// File is a set of job definitions.
type File struct {
	Jobs []Job `yaml:"jobs"`
}

// Job defines one method-invoking job. ID is the factory object name and the
// default job name; Target names an entry of the targets map given to
// Register.
type Job struct {
	ID              string    `yaml:"id"`
	Name            string    `yaml:"name,omitempty"`
	Group           string    `yaml:"group,omitempty"`
	Description     string    `yaml:"description,omitempty"`
	Target          string    `yaml:"target"`
	Method          string    `yaml:"method"`
	Arguments       []any     `yaml:"arguments,omitempty"`
	Concurrent      *bool     `yaml:"concurrent,omitempty"`
	Durable         *bool     `yaml:"durable,omitempty"`
	PropagateResult *bool     `yaml:"propagate_result,omitempty"`
	Listeners       []string  `yaml:"listeners,omitempty"`
	Triggers        []Trigger `yaml:"triggers,omitempty"`
}

// Trigger fires a job on a cron expression or a fixed interval. Exactly one
// of Cron and Every is set.
type Trigger struct {
	Name  string `yaml:"name"`
	Cron  string `yaml:"cron,omitempty"`
	Every string `yaml:"every,omitempty"`
}

// Registrar receives the descriptors and triggers built by Register.
// *scheduler.Scheduler implements it.
type Registrar interface {
	AddDescriptor(desc *core.JobDescriptor, replace bool) error
	DeleteJob(key string) error
	ScheduleJob(desc *core.JobDescriptor, triggerName string, sched schedule.Schedule) error
	ScheduleCron(desc *core.JobDescriptor, triggerName, expr string) error
}

// Load reads and validates a definition file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates YAML definitions. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	f := &File{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode job definitions: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks required fields and trigger shapes. All problems are
// reported together.
func (f *File) Validate() error {
	var errs []error
	jobs := make(map[string]bool)
	triggers := make(map[string]bool)

	for i, j := range f.Jobs {
		where := fmt.Sprintf("jobs[%d]", i)
		if j.ID != "" {
			where = fmt.Sprintf("job %q", j.ID)
		}

		if j.ID == "" {
			errs = append(errs, fmt.Errorf("%w: %s: id is required", ErrInvalid, where))
		}
		if j.Target == "" {
			errs = append(errs, fmt.Errorf("%w: %s: target is required", ErrInvalid, where))
		}
		if j.Method == "" {
			errs = append(errs, fmt.Errorf("%w: %s: method is required", ErrInvalid, where))
		}

		key := j.key()
		if jobs[key] {
			errs = append(errs, fmt.Errorf("%w: %s: duplicate job %s", ErrInvalid, where, key))
		}
		jobs[key] = true

		if len(j.Triggers) == 0 && j.Durable != nil && !*j.Durable {
			errs = append(errs, fmt.Errorf("%w: %s: non-durable job needs a trigger", ErrInvalid, where))
		}

		for k, t := range j.Triggers {
			tw := fmt.Sprintf("%s: triggers[%d]", where, k)
			if t.Name == "" {
				errs = append(errs, fmt.Errorf("%w: %s: name is required", ErrInvalid, tw))
			} else if triggers[t.Name] {
				errs = append(errs, fmt.Errorf("%w: %s: duplicate trigger %q", ErrInvalid, tw, t.Name))
			}
			triggers[t.Name] = true

			switch {
			case t.Cron != "" && t.Every != "":
				errs = append(errs, fmt.Errorf("%w: %s: set cron or every, not both", ErrInvalid, tw))
			case t.Cron == "" && t.Every == "":
				errs = append(errs, fmt.Errorf("%w: %s: cron or every is required", ErrInvalid, tw))
			case t.Every != "":
				if _, err := t.interval(); err != nil {
					errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalid, tw, err))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Register builds a descriptor for every job and hands it to r: jobs without
// triggers are stored, the others are scheduled once per trigger. On the
// first error every descriptor this call already registered is deleted
// again, so r is left as it was.
func (f *File) Register(r Registrar, targets map[string]any) ([]*core.JobDescriptor, error) {
	descs := make([]*core.JobDescriptor, 0, len(f.Jobs))
	var owned []string

	fail := func(err error) ([]*core.JobDescriptor, error) {
		errs := []error{err}
		for _, key := range owned {
			if derr := r.DeleteJob(key); derr != nil {
				errs = append(errs, fmt.Errorf("rollback %s: %w", key, derr))
			}
		}
		return nil, errors.Join(errs...)
	}

	for _, j := range f.Jobs {
		desc, err := j.Build(targets)
		if err != nil {
			return fail(err)
		}

		if len(j.Triggers) == 0 {
			if err := r.AddDescriptor(desc, false); err != nil {
				return fail(fmt.Errorf("job %q: %w", j.ID, err))
			}
			owned = append(owned, desc.Key())
		}
		for i, t := range j.Triggers {
			if err := t.register(r, desc); err != nil {
				return fail(fmt.Errorf("job %q: trigger %q: %w", j.ID, t.Name, err))
			}
			if i == 0 {
				owned = append(owned, desc.Key())
			}
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

// Build resolves the job's target and builds its descriptor.
func (j Job) Build(targets map[string]any) (*core.JobDescriptor, error) {
	target, ok := targets[j.Target]
	if !ok {
		return nil, &core.ConfigurationError{
			Op:  "register",
			Err: fmt.Errorf("job %q: unknown target %q: %w", j.ID, j.Target, core.ErrTargetNotSet),
		}
	}

	factory := descriptor.NewFactory(j.ID)
	factory.SetTarget(target, j.Method, j.Arguments...)
	if err := factory.Prepare(); err != nil {
		return nil, fmt.Errorf("job %q: %w", j.ID, err)
	}

	desc, err := factory.Build(j.options()...)
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", j.ID, err)
	}
	return desc, nil
}

func (j Job) options() []descriptor.Option {
	opts := []descriptor.Option{
		descriptor.Name(j.Name),
		descriptor.Description(j.Description),
		descriptor.Listeners(j.Listeners...),
	}
	if j.Group != "" {
		opts = append(opts, descriptor.Group(j.Group))
	}
	if j.Concurrent != nil {
		opts = append(opts, descriptor.Concurrent(*j.Concurrent))
	}
	if j.Durable != nil {
		opts = append(opts, descriptor.Durable(*j.Durable))
	}
	if j.PropagateResult != nil {
		opts = append(opts, descriptor.PropagateResult(*j.PropagateResult))
	}
	return opts
}

func (j Job) key() string {
	name := j.Name
	if name == "" {
		name = j.ID
	}
	group := j.Group
	if group == "" {
		group = core.DefaultGroup
	}
	return group + "." + name
}

func (t Trigger) interval() (time.Duration, error) {
	d, err := time.ParseDuration(t.Every)
	if err != nil {
		return 0, fmt.Errorf("every: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("every: %s is not positive", t.Every)
	}
	return d, nil
}

func (t Trigger) register(r Registrar, desc *core.JobDescriptor) error {
	if t.Cron != "" {
		return r.ScheduleCron(desc, t.Name, t.Cron)
	}
	d, err := t.interval()
	if err != nil {
		return &core.ConfigurationError{Op: "schedule", Err: err}
	}
	return r.ScheduleJob(desc, t.Name, schedule.Every(d))
}
