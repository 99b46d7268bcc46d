package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jdziat/method-invoking-jobs/pkg/core"
	"github.com/jdziat/method-invoking-jobs/pkg/security"
)

// GormHistoryStorage implements core.HistoryStorage using GORM.
type GormHistoryStorage struct {
	db *gorm.DB
}

var _ core.HistoryStorage = (*GormHistoryStorage)(nil)

// NewGormHistoryStorage creates a new GORM-backed history store.
func NewGormHistoryStorage(db *gorm.DB) *GormHistoryStorage {
	return &GormHistoryStorage{db: db}
}

// DB returns the underlying connection.
func (s *GormHistoryStorage) DB() *gorm.DB {
	return s.db
}

// IsSQLite reports whether the store runs on SQLite.
func (s *GormHistoryStorage) IsSQLite() bool {
	return s.db != nil && s.db.Dialector != nil && s.db.Dialector.Name() == "sqlite"
}

// Migrate creates the necessary tables.
func (s *GormHistoryStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&core.ExecutionRecord{})
}

// Record inserts an execution record. Error messages are sanitized before
// storage.
func (s *GormHistoryStorage) Record(ctx context.Context, rec *core.ExecutionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.State == "" {
		rec.State = core.StateSucceeded
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	rec.Error = security.SanitizeErrorMessage(rec.Error)
	return s.db.WithContext(ctx).Create(rec).Error
}

// Get retrieves a record by ID.
func (s *GormHistoryStorage) Get(ctx context.Context, id string) (*core.ExecutionRecord, error) {
	var rec core.ExecutionRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrExecutionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByJob returns the newest records of a job first. The limit is clamped
// to [1, security.MaxHistoryLimit].
func (s *GormHistoryStorage) ListByJob(ctx context.Context, jobKey string, limit int) ([]*core.ExecutionRecord, error) {
	var records []*core.ExecutionRecord
	err := s.db.WithContext(ctx).
		Where("job_key = ?", jobKey).
		Order("started_at DESC, created_at DESC").
		Limit(security.ClampHistoryLimit(limit)).
		Find(&records).Error
	return records, err
}

// CountByState returns how many records of a job ended in each state.
func (s *GormHistoryStorage) CountByState(ctx context.Context, jobKey string) (map[core.FireState]int64, error) {
	var rows []struct {
		State core.FireState
		Count int64
	}
	err := s.db.WithContext(ctx).
		Model(&core.ExecutionRecord{}).
		Select("state, COUNT(*) AS count").
		Where("job_key = ?", jobKey).
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[core.FireState]int64, len(rows))
	for _, r := range rows {
		counts[r.State] = r.Count
	}
	return counts, nil
}

// Prune deletes records that started before the cutoff.
func (s *GormHistoryStorage) Prune(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("started_at < ?", before).
		Delete(&core.ExecutionRecord{})
	return result.RowsAffected, result.Error
}
