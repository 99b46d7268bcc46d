package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronLogger routes robfig/cron's log lines to slog. Cron's info lines
// (wake, run, schedule) are per-tick noise and go to debug.
type cronLogger struct {
	log *slog.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
