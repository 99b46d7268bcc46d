// Package storage persists the execution history of job firings.
//
// This package includes:
//   - GormHistoryStorage: a GORM-based core.HistoryStorage that runs on
//     SQLite and PostgreSQL
//   - ConfigurePool and PoolConfig presets for tuning the underlying *sql.DB
//
// Job descriptors themselves are never stored; only the record of each
// firing is.
//
// Most users should import the root package github.com/jdziat/method-invoking-jobs
// which provides NewHistoryStorage() to create storage instances.
package storage
