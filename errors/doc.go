// Package errors provides structured error types for the zend-abi module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the struct and field path involved, the
// offending value and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseProfile, errors.KindFieldMissing).
//		Struct("zend_execute_data").
//		Path("This").
//		Detail("required by the call-frame resolver").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.AllocationFailed(errors.PhaseEngine, 32, 8)
//	err := errors.OutOfBounds(errors.PhaseMemory, 4096, 16, 4096)
//
// The tagged value and call-frame surfaces never return these errors; they
// report absence only. All errors implement the standard error interface and
// support errors.Is/As.
package errors
