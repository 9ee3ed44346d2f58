// Package errors provides structured error handling for readstash.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Not-found errors (store lookups)
//   - 3XX: Index/transport errors
//   - 4XX: Validation and conflict errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryNotFound indicates missing pages, highlights, or labels.
	CategoryNotFound Category = "NOT_FOUND"
	// CategoryIndex indicates search-index and transport errors.
	CategoryIndex Category = "INDEX"
	// CategoryValidation indicates input validation and conflict errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category. This is the closed set callers see;
// internal causes travel on the Cause chain and are never exposed directly.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Not-found errors (200-299)
	ErrCodePageNotFound      = "ERR_201_PAGE_NOT_FOUND"
	ErrCodeHighlightNotFound = "ERR_202_HIGHLIGHT_NOT_FOUND"

	// Index/transport errors (300-399)
	ErrCodeIndexUnavailable = "ERR_301_INDEX_UNAVAILABLE"
	ErrCodeIndexWriteFailed = "ERR_302_INDEX_WRITE_FAILED"
	ErrCodeSearchFailed     = "ERR_303_SEARCH_FAILED"

	// Validation and conflict errors (400-499)
	ErrCodeBadData       = "ERR_401_BAD_DATA"
	ErrCodeUnauthorized  = "ERR_402_UNAUTHORIZED"
	ErrCodeAlreadyExists = "ERR_403_ALREADY_EXISTS"
	ErrCodeUpdateFailed  = "ERR_404_UPDATE_FAILED"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryNotFound
	case '3':
		return CategoryIndex
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeIndexUnavailable:
		// The service cannot serve search without the index.
		return SeverityFatal
	case ErrCodeIndexWriteFailed:
		// Index writes are best-effort; callers log and continue.
		return SeverityWarning
	}
	return SeverityError
}
