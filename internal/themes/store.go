package themes

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Aman-CERP/surveydash/internal/artifact"
	surveyerrors "github.com/Aman-CERP/surveydash/internal/errors"
)

// Store serves the themes artifact. It never fails: when the artifact is
// missing or corrupt, callers get an empty snapshot and the cause is logged.
type Store struct {
	cache  *artifact.Cache[*ThemesData]
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	lastCode string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the clock used for empty snapshots and load stamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a store for the themes artifact at path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = artifact.NewCache(path, Decode,
		artifact.WithLogger(s.logger.With(slog.String("artifact", "themes"))),
		artifact.WithClock(s.now))
	return s
}

// Path returns the artifact path.
func (s *Store) Path() string {
	return s.cache.Path()
}

// Load returns the current themes snapshot. Repeated calls against an
// unchanged file return the identical pointer.
func (s *Store) Load() *ThemesData {
	snap, err := s.cache.Get()
	return s.resolve(snap, err)
}

// Refresh reloads the artifact even if its mtime is unchanged.
func (s *Store) Refresh() *ThemesData {
	snap, err := s.cache.Refresh()
	return s.resolve(snap, err)
}

// Reload forces a reload like Refresh but reports the failure instead of
// substituting an empty snapshot.
func (s *Store) Reload() error {
	snap, err := s.cache.Refresh()
	s.resolve(snap, err)
	return err
}

// Snapshot returns the cached snapshot with its source mtime and load time,
// loading it first if needed. Returns nil when the artifact is unavailable.
func (s *Store) Snapshot() *artifact.Snapshot[*ThemesData] {
	snap, err := s.cache.Get()
	s.resolve(snap, err)
	return snap
}

func (s *Store) resolve(snap *artifact.Snapshot[*ThemesData], err error) *ThemesData {
	if err != nil {
		s.noteFailure(err)
		return Empty(s.now())
	}
	s.noteRecovery()
	return snap.Data
}

// noteFailure logs an unavailable artifact once per distinct error code so a
// missing file does not flood the log on every request.
func (s *Store) noteFailure(err error) {
	code := surveyerrors.GetCode(err)

	s.mu.Lock()
	changed := code != s.lastCode
	s.lastCode = code
	s.mu.Unlock()

	if changed {
		s.logger.LogAttrs(context.Background(), slog.LevelWarn, "themes_unavailable", surveyerrors.LogAttrs(err)...)
		return
	}
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "themes_unavailable", surveyerrors.LogAttrs(err)...)
}

func (s *Store) noteRecovery() {
	s.mu.Lock()
	recovered := s.lastCode != ""
	s.lastCode = ""
	s.mu.Unlock()

	if recovered {
		s.logger.Info("themes_available", slog.String("path", s.cache.Path()))
	}
}
