// Package errors provides structured error handling for surveydash.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Artifact errors (data unavailable)
//   - 3XX: Upstream provider errors
//   - 4XX: Validation and lookup errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryData indicates a missing or unreadable artifact.
	CategoryData Category = "DATA_UNAVAILABLE"
	// CategoryUpstream indicates a failure of the generative-text provider.
	CategoryUpstream Category = "UPSTREAM"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryNotFound indicates a lookup for something that does not exist.
	CategoryNotFound Category = "NOT_FOUND"
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

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound    = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid     = "ERR_102_CONFIG_INVALID"
	ErrCodeCredentialMissing = "ERR_103_CREDENTIAL_MISSING"

	// Artifact errors (200-299)
	ErrCodeArtifactNotFound   = "ERR_201_ARTIFACT_NOT_FOUND"
	ErrCodeArtifactUnreadable = "ERR_202_ARTIFACT_UNREADABLE"
	ErrCodeArtifactCorrupt    = "ERR_206_ARTIFACT_CORRUPT"

	// Upstream errors (300-399)
	ErrCodeUpstreamTimeout     = "ERR_301_UPSTREAM_TIMEOUT"
	ErrCodeUpstreamUnavailable = "ERR_302_UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamFailed      = "ERR_303_UPSTREAM_FAILED"
	ErrCodeUpstreamRateLimited = "ERR_304_UPSTREAM_RATE_LIMITED"

	// Validation errors (400-499)
	ErrCodeInvalidInput   = "ERR_401_INVALID_INPUT"
	ErrCodeMessageEmpty   = "ERR_402_MESSAGE_EMPTY"
	ErrCodeInvalidThemeID = "ERR_403_INVALID_THEME_ID"
	ErrCodeThemeNotFound  = "ERR_404_THEME_NOT_FOUND"
	ErrCodeMessageTooLong = "ERR_405_MESSAGE_TOO_LONG"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if code == ErrCodeThemeNotFound {
		return CategoryNotFound
	}
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "201" from "ERR_201_ARTIFACT_NOT_FOUND")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryData
	case '3':
		return CategoryUpstream
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	// Artifact problems degrade to an empty dataset rather than failing requests.
	if categoryFromCode(code) == CategoryData {
		return SeverityWarning
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode reports whether a caller may reasonably try again later.
// Nothing in this module retries on its own.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeUpstreamTimeout, ErrCodeUpstreamUnavailable, ErrCodeUpstreamRateLimited:
		return true
	default:
		return false
	}
}
