package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Aman-CERP/surveydash/internal/chat"
	surveyerrors "github.com/Aman-CERP/surveydash/internal/errors"
	"github.com/Aman-CERP/surveydash/internal/metrics"
	"github.com/Aman-CERP/surveydash/pkg/version"
)

// handleEvidence serves one theme, a search, or the overview. A theme
// parameter takes precedence over search.
func (s *Server) handleEvidence(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Has("theme") {
		raw := q.Get("theme")
		id, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			s.writeError(w, r, surveyerrors.New(surveyerrors.ErrCodeInvalidThemeID,
				"theme must be an integer id", err).WithDetail("theme", raw))
			return
		}
		theme, err := s.deps.Search.Theme(id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, theme)
		return
	}

	if q.Has("search") {
		s.writeJSON(w, http.StatusOK, s.deps.Search.Search(r.Context(), q.Get("search")))
		return
	}

	s.writeJSON(w, http.StatusOK, s.deps.Search.Overview())
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		s.writeError(w, r, surveyerrors.New(surveyerrors.ErrCodeUpstreamRateLimited,
			"too many chat requests, try again shortly", nil))
		return
	}
	if s.deps.Chat == nil {
		s.writeError(w, r, surveyerrors.New(surveyerrors.ErrCodeCredentialMissing,
			"chat is not configured", nil))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	var req chat.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, surveyerrors.ValidationError("request body too large", err).
				WithDetail("limit_bytes", strconv.FormatInt(tooLarge.Limit, 10)))
			return
		}
		s.writeError(w, r, surveyerrors.ValidationError("request body must be JSON like {\"message\": \"...\"}", err))
		return
	}

	resp, err := s.deps.Chat.Chat(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if s.deps.Metrics != nil {
		body = s.deps.Metrics.Load()
	} else {
		body = metrics.Empty(time.Now())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// defaultTelemetryTop is the number of top terms reported when ?top is absent.
const defaultTelemetryTop = 20

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	top := defaultTelemetryTop
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, surveyerrors.ValidationError("top must be a non-negative integer", err).
				WithDetail("top", raw))
			return
		}
		top = n
	}
	s.writeJSON(w, http.StatusOK, s.deps.Telemetry.Snapshot(top))
}

// Health is the /healthz payload.
type Health struct {
	Status   string       `json:"status"`
	Version  string       `json:"version"`
	Uptime   string       `json:"uptime"`
	Themes   ThemesHealth `json:"themes"`
	Chat     bool         `json:"chat"`
	Watcher  string       `json:"watcher,omitempty"`
	Requests uint64       `json:"requests"`
	Failures uint64       `json:"failures"`
}

// ThemesHealth describes the themes artifact currently served.
type ThemesHealth struct {
	Available bool       `json:"available"`
	Path      string     `json:"path,omitempty"`
	Count     int        `json:"count"`
	Modified  *time.Time `json:"modified,omitempty"`
	Loaded    *time.Time `json:"loaded,omitempty"`
}

// handleHealth always answers 200; a missing artifact is reported as
// degraded since requests are still served from the empty dataset.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	h := Health{
		Status:   "ok",
		Version:  version.Short(),
		Uptime:   time.Since(started).Round(time.Second).String(),
		Chat:     s.deps.Chat != nil && s.deps.Chat.Available(),
		Requests: s.requests.Load(),
		Failures: s.failures.Load(),
	}
	if s.deps.Watcher != nil {
		h.Watcher = s.deps.Watcher.Mode()
	}

	if s.deps.Themes != nil {
		if snap := s.deps.Themes.Snapshot(); snap != nil {
			modified, loaded := snap.ModTime, snap.LoadedAt
			h.Themes = ThemesHealth{
				Available: true,
				Path:      snap.Path,
				Count:     len(snap.Data.Themes),
				Modified:  &modified,
				Loaded:    &loaded,
			}
		}
	}
	if !h.Themes.Available {
		h.Status = "degraded"
	}

	s.writeJSON(w, http.StatusOK, h)
}
