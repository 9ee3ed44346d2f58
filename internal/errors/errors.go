package errors

import (
	"fmt"
)

// StashError is the structured error type for readstash.
// It provides rich context for error handling, logging, and user presentation.
type StashError struct {
	// Code is the unique error code (e.g., "ERR_201_PAGE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, NotFound, Index, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error
}

// Error implements the error interface.
func (e *StashError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *StashError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with StashError.
func (e *StashError) Is(target error) bool {
	if t, ok := target.(*StashError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *StashError) WithDetail(key, value string) *StashError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new StashError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *StashError {
	return &StashError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a StashError from an existing error.
// The error's message becomes the StashError message.
func Wrap(code string, err error) *StashError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// BadData creates a validation error. Detected before any store call
// and never retried.
func BadData(message string) *StashError {
	return New(ErrCodeBadData, message, nil)
}

// PageNotFound creates a not-found error for a page lookup.
func PageNotFound(id string) *StashError {
	return New(ErrCodePageNotFound, "page not found", nil).WithDetail("page_id", id)
}

// HighlightNotFound creates a not-found error for a highlight lookup.
func HighlightNotFound(id string) *StashError {
	return New(ErrCodeHighlightNotFound, "highlight not found", nil).WithDetail("highlight_id", id)
}

// IndexError creates an index/transport error.
func IndexError(message string, cause error) *StashError {
	return New(ErrCodeIndexWriteFailed, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *StashError {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if se, ok := err.(*StashError); ok {
		return se.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a StashError.
// Returns empty string if not a StashError.
func GetCode(err error) string {
	if se, ok := err.(*StashError); ok {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from a StashError.
// Returns empty string if not a StashError.
func GetCategory(err error) Category {
	if se, ok := err.(*StashError); ok {
		return se.Category
	}
	return ""
}
