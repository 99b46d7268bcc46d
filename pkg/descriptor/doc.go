// Package descriptor provides the Factory that builds job descriptors.
//
// This package includes:
//   - Factory: resolves a target method once and builds immutable
//     core.JobDescriptor values around it
//   - Option: functional options for name, group, concurrency, durability,
//     listener bindings and result propagation
//
// Most users should import the root package github.com/jdziat/method-invoking-jobs
// which re-exports the factory and all option functions.
package descriptor
