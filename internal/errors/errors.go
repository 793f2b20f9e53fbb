package errors

import (
	"errors"
	"fmt"
)

// SurveyError is the structured error type for surveydash.
// It carries enough context for logging, HTTP/MCP status mapping, and CLI display.
type SurveyError struct {
	// Code is the unique error code (e.g., "ERR_404_THEME_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, DataUnavailable, Upstream, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates the caller may try the operation again later.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *SurveyError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SurveyError) Unwrap() error {
	return e.Cause
}

// Is matches another SurveyError by code, so errors.Is works against
// the exported sentinels below.
func (e *SurveyError) Is(target error) bool {
	if t, ok := target.(*SurveyError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *SurveyError) WithDetail(key, value string) *SurveyError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *SurveyError) WithSuggestion(suggestion string) *SurveyError {
	e.Suggestion = suggestion
	return e
}

// New creates a new SurveyError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SurveyError {
	return &SurveyError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SurveyError from an existing error.
func Wrap(code string, err error) *SurveyError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is comparisons. Matching is by code only.
var (
	ErrThemeNotFound     = &SurveyError{Code: ErrCodeThemeNotFound}
	ErrMessageEmpty      = &SurveyError{Code: ErrCodeMessageEmpty}
	ErrCredentialMissing = &SurveyError{Code: ErrCodeCredentialMissing}
	ErrUpstreamFailed    = &SurveyError{Code: ErrCodeUpstreamFailed}
)

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *SurveyError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// DataError creates an artifact (data unavailable) error.
func DataError(code string, message string, cause error) *SurveyError {
	return New(code, message, cause)
}

// UpstreamError creates a provider failure error.
func UpstreamError(message string, cause error) *SurveyError {
	return New(ErrCodeUpstreamFailed, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *SurveyError {
	return New(ErrCodeInvalidInput, message, cause)
}

// NotFoundError creates a theme lookup error.
func NotFoundError(message string) *SurveyError {
	return New(ErrCodeThemeNotFound, message, nil)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *SurveyError {
	return New(ErrCodeInternal, message, cause)
}

// As extracts a SurveyError from an error chain.
func As(err error) (*SurveyError, bool) {
	var se *SurveyError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if se, ok := As(err); ok {
		return se.Retryable
	}
	return false
}

// GetCode extracts the error code from a SurveyError.
// Returns empty string if not a SurveyError.
func GetCode(err error) string {
	if se, ok := As(err); ok {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from a SurveyError.
// Returns empty string if not a SurveyError.
func GetCategory(err error) Category {
	if se, ok := As(err); ok {
		return se.Category
	}
	return ""
}
