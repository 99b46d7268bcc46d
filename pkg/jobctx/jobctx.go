// Package jobctx provides public access to the current firing for target methods.
package jobctx

import (
	"context"
	"log/slog"

	"github.com/jdziat/method-invoking-jobs/pkg/core"
	intctx "github.com/jdziat/method-invoking-jobs/pkg/internal/context"
)

// FiringFromContext returns the current firing, or nil when the method was
// not invoked by the bridge. Target methods receive this context when their
// first parameter is a context.Context.
func FiringFromContext(ctx context.Context) *core.FiringContext {
	f := intctx.GetFiring(ctx)
	if f == nil {
		return nil
	}
	return f.Context
}

// FireInstanceIDFromContext returns the current fire instance ID, or empty string.
func FireInstanceIDFromContext(ctx context.Context) string {
	fc := FiringFromContext(ctx)
	if fc == nil {
		return ""
	}
	return fc.FireInstanceID
}

// JobKeyFromContext returns the key of the firing job, or empty string.
func JobKeyFromContext(ctx context.Context) string {
	fc := FiringFromContext(ctx)
	if fc == nil {
		return ""
	}
	return fc.JobKey()
}

// Logger returns a logger tagged with the current job and fire instance,
// falling back to slog.Default().
func Logger(ctx context.Context) *slog.Logger {
	f := intctx.GetFiring(ctx)
	if f == nil || f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}
