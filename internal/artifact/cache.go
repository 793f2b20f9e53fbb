// Package artifact caches JSON artifacts produced by the offline pipeline.
//
// A Cache holds at most one decoded snapshot of a single file. Every Get stats
// the file and only re-reads it when the modification time differs from the
// snapshot's, so unchanged artifacts are served from memory while pipeline
// updates become visible without a restart. Snapshots are swapped whole through
// an atomic pointer; readers never observe a partially replaced value.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	surveyerrors "github.com/Aman-CERP/surveydash/internal/errors"
)

// Decoder turns raw artifact bytes into a snapshot value.
type Decoder[T any] func(data []byte) (T, error)

// Snapshot is one successfully decoded version of an artifact.
// Snapshots are immutable; a reload produces a new Snapshot.
type Snapshot[T any] struct {
	// Data is the decoded artifact.
	Data T

	// ModTime is the file modification time the snapshot was read at.
	ModTime time.Time

	// LoadedAt is when the snapshot was decoded.
	LoadedAt time.Time

	// Path is the artifact path.
	Path string
}

// Cache is a process-wide, mtime-validated cache for one artifact file.
type Cache[T any] struct {
	path    string
	decode  Decoder[T]
	current atomic.Pointer[Snapshot[T]]
	reloads atomic.Uint64
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

// WithLogger sets the logger used for reload events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides time.Now for LoadedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// NewCache creates an empty cache for the artifact at path.
// Nothing is read until the first Get.
func NewCache[T any](path string, decode Decoder[T], opts ...Option) *Cache[T] {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		path:   path,
		decode: decode,
		logger: o.logger,
		now:    o.now,
	}
}

// Path returns the artifact path.
func (c *Cache[T]) Path() string {
	return c.path
}

// Reloads returns how many times the artifact has been decoded.
func (c *Cache[T]) Reloads() uint64 {
	return c.reloads.Load()
}

// Current returns the cached snapshot without touching the filesystem.
// Returns nil before the first successful load.
func (c *Cache[T]) Current() *Snapshot[T] {
	return c.current.Load()
}

// Get returns the current snapshot, reloading the artifact first if its
// modification time no longer matches. When the file is missing or cannot be
// decoded, Get returns a 2XX SurveyError and leaves the cached snapshot as is.
func (c *Cache[T]) Get() (*Snapshot[T], error) {
	info, err := os.Stat(c.path)
	if err != nil {
		return nil, statError(c.path, err)
	}

	if cur := c.current.Load(); cur != nil && cur.ModTime.Equal(info.ModTime()) {
		return cur, nil
	}

	return c.load(info.ModTime())
}

// Refresh reloads the artifact regardless of its modification time.
func (c *Cache[T]) Refresh() (*Snapshot[T], error) {
	info, err := os.Stat(c.path)
	if err != nil {
		return nil, statError(c.path, err)
	}
	return c.load(info.ModTime())
}

// load reads and decodes the artifact and swaps it in. Concurrent loads may
// race; the last one to store wins, which is always a complete snapshot.
func (c *Cache[T]) load(modTime time.Time) (*Snapshot[T], error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, statError(c.path, err)
	}

	value, err := c.decode(data)
	if err != nil {
		return nil, surveyerrors.DataError(
			surveyerrors.ErrCodeArtifactCorrupt,
			fmt.Sprintf("cannot decode %s", c.path),
			err,
		).WithDetail("path", c.path)
	}

	snap := &Snapshot[T]{
		Data:     value,
		ModTime:  modTime,
		LoadedAt: c.now(),
		Path:     c.path,
	}
	c.current.Store(snap)
	c.reloads.Add(1)

	c.logger.Info("artifact_reloaded",
		slog.String("path", c.path),
		slog.Time("mod_time", modTime),
		slog.Int("bytes", len(data)))

	return snap, nil
}

func statError(path string, err error) error {
	code := surveyerrors.ErrCodeArtifactUnreadable
	if errors.Is(err, fs.ErrNotExist) {
		code = surveyerrors.ErrCodeArtifactNotFound
	}
	return surveyerrors.DataError(code, fmt.Sprintf("artifact %s is unavailable", path), err).
		WithDetail("path", path).
		WithSuggestion("run the data refresh pipeline to regenerate artifacts")
}
