// Package metrics serves the pipeline's metrics artifact verbatim.
package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aman-CERP/surveydash/internal/artifact"
	surveyerrors "github.com/Aman-CERP/surveydash/internal/errors"
)

// Decode checks that data is a JSON object and returns it untouched.
func Decode(data []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return nil, errors.New("invalid JSON")
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("metrics artifact must be a JSON object")
	}
	return json.RawMessage(trimmed), nil
}

// Empty returns the placeholder served when no metrics are available.
func Empty(now time.Time) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"metadata":{"generated_at":%q}}`, now.UTC().Format(time.RFC3339)))
}

// Store is a fail-open, mtime-cached view of metrics.json.
type Store struct {
	cache  *artifact.Cache[json.RawMessage]
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a store for the metrics artifact at path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		cache:  artifact.NewCache(path, Decode, artifact.WithLogger(logger.With(slog.String("artifact", "metrics")))),
		logger: logger,
		now:    time.Now,
	}
}

// Path returns the artifact path.
func (s *Store) Path() string {
	return s.cache.Path()
}

// Load returns the metrics document, or the placeholder if it is unavailable.
func (s *Store) Load() json.RawMessage {
	snap, err := s.cache.Get()
	if err != nil {
		s.logger.LogAttrs(context.Background(), slog.LevelDebug, "metrics_unavailable", surveyerrors.LogAttrs(err)...)
		return Empty(s.now())
	}
	return snap.Data
}

// Refresh reloads the artifact regardless of mtime.
func (s *Store) Refresh() json.RawMessage {
	snap, err := s.cache.Refresh()
	if err != nil {
		s.logger.LogAttrs(context.Background(), slog.LevelWarn, "metrics_unavailable", surveyerrors.LogAttrs(err)...)
		return Empty(s.now())
	}
	return snap.Data
}

// Reload forces a reload and returns the load error, if any.
func (s *Store) Reload() error {
	_, err := s.cache.Refresh()
	if err != nil {
		s.logger.LogAttrs(context.Background(), slog.LevelWarn, "metrics_unavailable", surveyerrors.LogAttrs(err)...)
	}
	return err
}
