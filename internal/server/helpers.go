package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	surveyerrors "github.com/Aman-CERP/surveydash/internal/errors"
)

// statusFor maps an error onto an HTTP status by category.
func statusFor(err error) int {
	se, ok := surveyerrors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if se.Code == surveyerrors.ErrCodeUpstreamRateLimited {
		return http.StatusTooManyRequests
	}

	switch se.Category {
	case surveyerrors.CategoryValidation:
		return http.StatusBadRequest
	case surveyerrors.CategoryNotFound:
		return http.StatusNotFound
	case surveyerrors.CategoryConfig:
		return http.StatusServiceUnavailable
	case surveyerrors.CategoryUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("response_write_failed", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.failures.Add(1)
	status := statusFor(err)

	attrs := append(surveyerrors.LogAttrs(err),
		slog.String("request_id", requestIDFrom(r.Context())),
		slog.Int("status", status))
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(context.Background(), level, "request_failed", attrs...)

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "1")
	}
	s.writeJSON(w, status, surveyerrors.ToBody(err))
}
