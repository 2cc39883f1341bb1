// Package errors provides a lightweight structured error type (WheelsiteError)
// for category-based classification and retry semantics in the CLI and fetcher.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a wheelsite error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// External system integration errors
	CategoryFetch     ErrorCategory = "fetch"
	CategoryToolchain ErrorCategory = "toolchain"

	// Build and processing errors
	CategoryBuild      ErrorCategory = "build"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryDatabase   ErrorCategory = "database"

	// Runtime and infrastructure errors
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// WheelsiteError is a structured error with category, retryability, and context
type WheelsiteError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for WheelsiteError
type ContextFields map[string]any

// Error implements the error interface
func (e *WheelsiteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *WheelsiteError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *WheelsiteError) WithContext(key string, value any) *WheelsiteError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new WheelsiteError
func New(category ErrorCategory, severity ErrorSeverity, message string) *WheelsiteError {
	return &WheelsiteError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: false,
	}
}

// Wrap creates a new WheelsiteError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *WheelsiteError {
	return &WheelsiteError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}

// WrapRetryable creates a new retryable WheelsiteError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *WheelsiteError {
	return &WheelsiteError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if we, ok := err.(*WheelsiteError); ok {
		return we.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if we, ok := err.(*WheelsiteError); ok {
		return we.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a WheelsiteError
func GetCategory(err error) ErrorCategory {
	if we, ok := err.(*WheelsiteError); ok {
		return we.Category
	}
	return CategoryInternal
}

// FetchError creates a new retryable fetch error
func FetchError(message string) *WheelsiteError {
	return &WheelsiteError{
		Category:  CategoryFetch,
		Severity:  SeverityError,
		Message:   message,
		Retryable: true,
	}
}
