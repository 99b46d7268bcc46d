// Package invoke provides reflection-based method resolution and invocation.
//
// This package includes:
//   - MethodResolver: binds a target, a method name and static arguments,
//     validated once by Prepare
//   - InvocationAdapter: the single-method fire-time contract (core.Invoker)
//   - MethodExporter: lets targets expose unexported methods by name
//
// Failures raised by invoked methods, including panics, are returned as
// *core.InvocationFailure and never propagate raw.
package invoke
