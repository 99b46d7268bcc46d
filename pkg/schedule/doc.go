// Package schedule provides the trigger schedules the scheduler fires
// descriptors on.
//
// This package includes:
//   - Schedule, which any cron.Schedule satisfies
//   - Every() for fixed-interval schedules
//   - Daily() and DailyIn() for a fixed time each day
//   - Weekly() for a fixed day and time each week
//   - Cron() and ParseCron() for cron expressions and descriptors like "@hourly"
//
// Most users should import the root package github.com/jdziat/method-invoking-jobs
// which re-exports these functions.
package schedule
