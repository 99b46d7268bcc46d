package bridge

import (
	"log/slog"

	"github.com/jdziat/method-invoking-jobs/pkg/core"
)

// Option configures a Bridge.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

type config struct {
	logger *slog.Logger
	global []core.JobListener
}

// WithLogger sets the logger used for firing diagnostics. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *config) {
		c.logger = l
	})
}

// WithGlobalListener adds a listener notified for every firing, whether or not
// the descriptor names it. Global listeners run before named ones.
func WithGlobalListener(l core.JobListener) Option {
	return optionFunc(func(c *config) {
		if l != nil {
			c.global = append(c.global, l)
		}
	})
}
