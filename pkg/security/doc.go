// Package security provides validation, sanitization, and limits for the methodjobs package.
//
// This package includes:
//   - Validation of job, group and listener names
//   - Error message sanitization before history storage
//   - Clamping of history query limits
//
// Most users should import the root package github.com/jdziat/method-invoking-jobs
// which re-exports these functions.
package security
