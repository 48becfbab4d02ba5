// Package errors provides structured error types for the grappa toolchain.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: the function being
// processed, the owning region, and the offending instruction in printed form.
//
// Use convenience constructors for common patterns:
//
//	err := errors.Syntax(12, "expected %s, got %q", "type", tok)
//	err := errors.AmbiguousMerge("work", 3, "%x = load %p")
//
// All errors implement the standard error interface and support errors.Is/As.
// Is matches on Phase and Kind, so sentinel comparisons like
//
//	errors.Is(err, &errors.Error{Phase: errors.PhaseGrow, Kind: errors.KindAmbiguousMerge})
//
// work regardless of the attached context.
package errors
