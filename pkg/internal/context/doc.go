// Package context provides internal context helpers for firings.
//
// This package is internal and should not be imported directly.
// It provides the context value carrying the current firing context and a
// logger scoped to it while a target method runs.
package context
