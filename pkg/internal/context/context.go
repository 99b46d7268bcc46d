// Package context provides context helpers for the methodjobs package.
package context

import (
	"context"
	"log/slog"

	"github.com/jdziat/method-invoking-jobs/pkg/core"
)

// FiringKey is the key for storing the current firing in context.Context.
type FiringKey struct{}

// Firing holds the firing being executed and a logger scoped to it.
type Firing struct {
	Context *core.FiringContext
	Logger  *slog.Logger
}

// GetFiring retrieves the firing from a context.Context.
func GetFiring(ctx context.Context) *Firing {
	if f, ok := ctx.Value(FiringKey{}).(*Firing); ok {
		return f
	}
	return nil
}

// WithFiring adds the firing to a context.Context.
func WithFiring(ctx context.Context, f *Firing) context.Context {
	return context.WithValue(ctx, FiringKey{}, f)
}
