// Package errors provides structured error types for the decoding bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the failing decode Stage, a byte Offset into the input when
// the codec reported one, a field path and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseSector, errors.KindParser).
//		Stage(errors.StageChild).
//		Offset(112).
//		Detail("geometry group %d", 3).
//		Cause(cause).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.CodecDecode(cause)
//	err := errors.MissingAttributes("root sector has no attribute table")
//
// Sentinels such as ErrMissingAttributes and ErrCodecDecode work with errors.Is.
package errors
