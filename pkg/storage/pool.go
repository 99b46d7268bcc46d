package storage

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// PoolConfig holds connection pool settings for the history database.
// Zero fields fall back to DefaultPoolConfig.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPoolConfig returns the pool used when nothing is configured.
// History writes are short single-row inserts, so the pool stays small.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    4,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// ResourceConstrainedPoolConfig returns pool settings for limited database
// resources, such as a single SQLite file shared with the application.
func ResourceConstrainedPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: 3 * time.Minute,
	}
}

func (c PoolConfig) withDefaults() PoolConfig {
	d := DefaultPoolConfig()
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = d.MaxOpenConns
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = min(d.MaxIdleConns, c.MaxOpenConns)
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = d.ConnMaxLifetime
	}
	return c
}

// ConfigurePool applies cfg to the *sql.DB behind db.
func ConfigurePool(db *gorm.DB, cfg PoolConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}

	cfg = cfg.withDefaults()
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return nil
}

// NewGormHistoryStorageWithPool configures the pool and creates a history store.
//
//	store, err := NewGormHistoryStorageWithPool(db, ResourceConstrainedPoolConfig())
func NewGormHistoryStorageWithPool(db *gorm.DB, cfg PoolConfig) (*GormHistoryStorage, error) {
	if err := ConfigurePool(db, cfg); err != nil {
		return nil, err
	}
	return NewGormHistoryStorage(db), nil
}
