// Package core provides the fundamental types and interfaces for the methodjobs package.
//
// This package contains:
//   - JobDescriptor, the immutable scheduler-facing job record
//   - FiringContext and Outcome for a single firing
//   - Event types and the JobListener contract
//   - ExecutionRecord and the HistoryStorage persistence contract
//   - Error types for configuration and invocation failures
//
// Most users should import the root package github.com/jdziat/method-invoking-jobs
// instead of this package directly.
package core
