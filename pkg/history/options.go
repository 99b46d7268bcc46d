package history

import (
	"log/slog"
	"time"

	"github.com/jdziat/method-invoking-jobs/pkg/security"
)

// DefaultName is the listener name descriptors use to opt into recording.
const DefaultName = "history"

// Options holds configuration for a Recorder.
type Options struct {
	Name          string
	Logger        *slog.Logger
	MaxResultSize int
	MaxAttempts   int
	WriteTimeout  time.Duration
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Name:          DefaultName,
		MaxResultSize: security.MaxResultSize,
		MaxAttempts:   3,
		WriteTimeout:  5 * time.Second,
	}
}

// Option modifies Options.
type Option interface {
	Apply(*Options)
}

type optionFunc func(*Options)

func (f optionFunc) Apply(o *Options) { f(o) }

// WithName registers the recorder under a different listener name.
func WithName(name string) Option {
	return optionFunc(func(o *Options) {
		o.Name = name
	})
}

// WithLogger sets the logger for write failures. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(o *Options) {
		o.Logger = l
	})
}

// MaxResultSize sets the largest encoded result kept. Larger results are
// recorded without a value.
func MaxResultSize(n int) Option {
	return optionFunc(func(o *Options) {
		o.MaxResultSize = n
	})
}

// MaxAttempts sets how many times a failed write is attempted.
func MaxAttempts(n int) Option {
	return optionFunc(func(o *Options) {
		if n < 1 {
			n = 1
		}
		o.MaxAttempts = n
	})
}

// WriteTimeout bounds each write, retries included.
func WriteTimeout(d time.Duration) Option {
	return optionFunc(func(o *Options) {
		o.WriteTimeout = d
	})
}
