// Package errors provides application error types for labelflow.
//
// This package defines:
//   - AppError type with error classification
//   - Error constructors for every failure kind
//   - Error type checking helpers
//   - HTTP status code mapping
//
// # Error Kinds
//
//   - InvalidArgument: Malformed or missing fields (400)
//   - NotFound: Referenced task, item or tag does not exist (404)
//   - Validation: Tag sequence is not a valid partition of the content (422)
//   - CrossDatasetMismatch: Item and task disagree on dataset (409)
//   - Conflict: Claim race lost or concurrent tag-set write (409)
//   - Unavailable: Store unreachable or timed out (503)
//   - Internal: Unexpected server error (500)
//
// # Usage
//
// Create errors using constructor functions:
//
//	return apperrors.NotFound("task")
//	return apperrors.InvalidArgument("symbol must not contain whitespace")
//
// Check error types:
//
//	if apperrors.IsConflict(err) {
//	    // advance to the next candidate
//	}
//
// # Error Wrapping
//
// Errors support wrapping with fmt.Errorf:
//
//	return fmt.Errorf("failed to claim item: %w", apperrors.Conflict("already claimed"))
package errors
