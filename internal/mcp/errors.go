// Package mcp exposes the survey evidence operations as Model Context
// Protocol tools over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"

	surveyerrors "github.com/Aman-CERP/surveydash/internal/errors"
)

// Custom MCP error codes for surveydash.
const (
	// ErrCodeUnavailable indicates a missing credential or bad configuration.
	ErrCodeUnavailable = -32001

	// ErrCodeUpstream indicates the generative-text provider failed.
	ErrCodeUpstream = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeNotFound indicates an unknown theme id.
	ErrCodeNotFound = -32004

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}
	if se, ok := surveyerrors.As(err); ok {
		return mapSurveyError(se)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewResourceNotFoundError creates an error for unknown resources.
func NewResourceNotFoundError(uri string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Resource '%s' not found.", uri),
	}
}

func mapSurveyError(se *surveyerrors.SurveyError) *MCPError {
	message := se.Message
	if se.Suggestion != "" {
		message = fmt.Sprintf("%s (%s)", se.Message, se.Suggestion)
	}

	switch se.Category {
	case surveyerrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	case surveyerrors.CategoryNotFound:
		return &MCPError{Code: ErrCodeNotFound, Message: message}
	case surveyerrors.CategoryConfig:
		return &MCPError{Code: ErrCodeUnavailable, Message: message}
	case surveyerrors.CategoryUpstream:
		if se.Code == surveyerrors.ErrCodeUpstreamTimeout {
			return &MCPError{Code: ErrCodeTimeout, Message: message}
		}
		return &MCPError{Code: ErrCodeUpstream, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
