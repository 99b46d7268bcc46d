package core

import (
	"context"
	"time"
)

// HistoryStorage persists execution records of past firings.
type HistoryStorage interface {
	// Migrate creates the necessary database tables.
	Migrate(ctx context.Context) error

	Record(ctx context.Context, rec *ExecutionRecord) error
	Get(ctx context.Context, id string) (*ExecutionRecord, error)

	// ListByJob returns the newest records of a job first.
	ListByJob(ctx context.Context, jobKey string, limit int) ([]*ExecutionRecord, error)
	CountByState(ctx context.Context, jobKey string) (map[FireState]int64, error)

	// Prune deletes records that started before the cutoff.
	Prune(ctx context.Context, before time.Time) (int64, error)
}
