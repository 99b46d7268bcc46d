package scheduler

import (
	"log/slog"
	"time"
)

// Option configures a Scheduler.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

type config struct {
	logger  *slog.Logger
	loc     *time.Location
	seconds bool
}

// WithLogger sets the scheduler's logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *config) {
		c.logger = l
	})
}

// WithLocation sets the time zone cron expressions are evaluated in.
// Default: time.Local.
func WithLocation(loc *time.Location) Option {
	return optionFunc(func(c *config) {
		c.loc = loc
	})
}

// WithSeconds makes ScheduleCron accept an optional leading seconds field.
func WithSeconds() Option {
	return optionFunc(func(c *config) {
		c.seconds = true
	})
}
