// Package errors provides structured error types for the wasm-binding library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: argument path, Go/WIT type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindInvalidArgument).
//		Path("add", "a").
//		GoType("string").
//		WitType("s32").
//		Detail("cannot convert %q to integer", "abc").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidArgument(path, "string", "s32", cause)
//	err := errors.DelegateFailure("wasm", "add", trapErr)
//
// The two conditions callers usually branch on have predicates:
//
//	errors.IsInvalidArgument(err) // host value rejected before crossing the boundary
//	errors.IsDelegateFailure(err) // the native side failed
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
