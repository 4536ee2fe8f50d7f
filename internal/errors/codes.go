// Package errors provides structured error handling for searchlab.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Store errors (index files, payload database)
//   - 3XX: Provider errors (upstream search failures)
//   - 4XX: Validation errors (invalid arguments to the ranking core)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStore indicates index and payload store errors.
	CategoryStore Category = "STORE"
	// CategoryProvider indicates upstream search provider errors.
	CategoryProvider Category = "PROVIDER"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Store errors (200-299)
	ErrCodeStoreIO      = "ERR_201_STORE_IO"
	ErrCodeStoreLocked  = "ERR_202_STORE_LOCKED"
	ErrCodeCorruptIndex = "ERR_203_CORRUPT_INDEX"
	ErrCodeStoreClosed  = "ERR_204_STORE_CLOSED"

	// Provider errors (300-399)
	ErrCodeUpstream = "ERR_301_UPSTREAM"

	// Validation errors (400-499)
	ErrCodeInvalidArgument   = "ERR_401_INVALID_ARGUMENT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeZeroNormVector    = "ERR_403_ZERO_NORM_VECTOR"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract the leading digit of the numeric portion
	// (e.g., "4" from "ERR_401_INVALID_ARGUMENT").
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStore
	case '3':
		return CategoryProvider
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}
