package errors

import (
	"fmt"
	"log/slog"
	"strings"
)

// FormatForCLI formats an error for terminal display.
// Non-SurveyErrors are reported as internal errors.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	se, ok := As(err)
	if !ok {
		se = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", se.Message)
	if se.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", se.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", se.Code)
	return sb.String()
}

// Body is the wire representation of an error returned by the HTTP API.
type Body struct {
	Error      bool              `json:"error"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Retryable  bool              `json:"retryable,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
}

// ToBody converts any error into its wire representation.
// Causes are deliberately left out; they go to the log, not the client.
func ToBody(err error) Body {
	se, ok := As(err)
	if !ok {
		se = New(ErrCodeInternal, "internal error", err)
	}
	return Body{
		Error:      true,
		Code:       se.Code,
		Message:    se.Message,
		Category:   string(se.Category),
		Retryable:  se.Retryable,
		Suggestion: se.Suggestion,
		Details:    se.Details,
	}
}

// LogAttrs returns slog attributes describing err.
func LogAttrs(err error) []slog.Attr {
	if err == nil {
		return nil
	}

	se, ok := As(err)
	if !ok {
		return []slog.Attr{slog.String("error", err.Error())}
	}

	attrs := []slog.Attr{
		slog.String("error_code", se.Code),
		slog.String("error", se.Message),
		slog.String("category", string(se.Category)),
	}
	if se.Cause != nil {
		attrs = append(attrs, slog.String("cause", se.Cause.Error()))
	}
	for k, v := range se.Details {
		attrs = append(attrs, slog.String("detail_"+k, v))
	}
	return attrs
}
