package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates the file appeared (including a rename into place).
	OpCreate Operation = iota
	// OpModify indicates the file was written.
	OpModify
	// OpDelete indicates the file was removed.
	OpDelete
	// OpRename indicates the file was renamed away.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a change to one watched artifact.
type FileEvent struct {
	// Path is the absolute, cleaned artifact path.
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Target is an artifact file and the function that reloads it.
type Target struct {
	Path    string
	Refresh func() error
}

// Options configures the watcher behavior.
type Options struct {
	// DebounceWindow is the quiet period before a refresh runs.
	// Default: 200ms
	DebounceWindow time.Duration

	// PollInterval is the stat interval when fsnotify is unavailable.
	// Default: 5s. Negative disables the fallback.
	PollInterval time.Duration
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow: 200 * time.Millisecond,
		PollInterval:   5 * time.Second,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	return o
}

// Watcher modes reported by Mode.
const (
	ModeIdle     = "idle"
	ModeFsnotify = "fsnotify"
	ModePolling  = "polling"
	ModeDisabled = "disabled"
)

// ArtifactWatcher refreshes stores when their artifact files change.
type ArtifactWatcher struct {
	targets map[string]Target
	opts    Options
	logger  *slog.Logger

	mu        sync.Mutex
	mode      string
	refreshes atomic.Uint64
	failures  atomic.Uint64
}

// New creates a watcher for targets. Nothing is opened until Run.
func New(targets []Target, opts Options, logger *slog.Logger) *ArtifactWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &ArtifactWatcher{
		targets: make(map[string]Target, len(targets)),
		opts:    opts.WithDefaults(),
		logger:  logger,
		mode:    ModeIdle,
	}
	for _, t := range targets {
		t.Path = cleanPath(t.Path)
		w.targets[t.Path] = t
	}
	return w
}

// Run watches until ctx is cancelled. It returns nil on cancellation and
// when no watching mechanism is available; requests still revalidate by
// mtime in that case.
func (w *ArtifactWatcher) Run(ctx context.Context) error {
	if len(w.targets) == 0 {
		w.setMode(ModeDisabled)
		return nil
	}

	deb := NewDebouncer(w.opts.DebounceWindow, w.logger)
	defer deb.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	fsw, err := w.openFsnotify()
	switch {
	case err == nil:
		w.setMode(ModeFsnotify)
		go func() { errc <- w.runFsnotify(ctx, fsw, deb) }()
	case w.opts.PollInterval > 0:
		w.logger.Warn("watcher_fallback",
			slog.String("mode", ModePolling),
			slog.String("error", err.Error()))
		w.setMode(ModePolling)
		poller := NewPollingWatcher(w.opts.PollInterval, w.paths())
		go func() { errc <- poller.Run(ctx, deb.Add) }()
	default:
		w.logger.Warn("watcher_disabled", slog.String("error", err.Error()))
		w.setMode(ModeDisabled)
		return nil
	}

	w.logger.Info("watcher_started",
		slog.String("mode", w.Mode()),
		slog.Int("targets", len(w.targets)))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case batch, ok := <-deb.Output():
			if !ok {
				return nil
			}
			w.dispatch(batch)
		}
	}
}

// Mode reports how the watcher is currently detecting changes.
func (w *ArtifactWatcher) Mode() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// Refreshes returns the number of refreshes that succeeded.
func (w *ArtifactWatcher) Refreshes() uint64 {
	return w.refreshes.Load()
}

// Failures returns the number of refreshes that returned an error.
func (w *ArtifactWatcher) Failures() uint64 {
	return w.failures.Load()
}

func (w *ArtifactWatcher) setMode(mode string) {
	w.mu.Lock()
	w.mode = mode
	w.mu.Unlock()
}

func (w *ArtifactWatcher) paths() []string {
	paths := make([]string, 0, len(w.targets))
	for p := range w.targets {
		paths = append(paths, p)
	}
	return paths
}

// openFsnotify watches the parent directory of every target. Directories
// rather than files are watched so that rename-into-place writes are seen.
func (w *ArtifactWatcher) openFsnotify() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	added := make(map[string]bool)
	for p := range w.targets {
		dir := filepath.Dir(p)
		if added[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		added[dir] = true
	}
	return fsw, nil
}

func (w *ArtifactWatcher) runFsnotify(ctx context.Context, fsw *fsnotify.Watcher, deb *Debouncer) error {
	defer func() { _ = fsw.Close() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if fe, ok := w.convert(event); ok {
				deb.Add(fe)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

// convert maps an fsnotify event onto a FileEvent, dropping events for
// files that are not targets and chmod-only events.
func (w *ArtifactWatcher) convert(event fsnotify.Event) (FileEvent, bool) {
	path := cleanPath(event.Name)
	if _, ok := w.targets[path]; !ok {
		return FileEvent{}, false
	}

	var op Operation
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove):
		op = OpDelete
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return FileEvent{}, false
	}
	return FileEvent{Path: path, Operation: op, Timestamp: time.Now()}, true
}

func (w *ArtifactWatcher) dispatch(batch []FileEvent) {
	for _, event := range batch {
		target, ok := w.targets[event.Path]
		if !ok || target.Refresh == nil {
			continue
		}

		attrs := []any{
			slog.String("path", event.Path),
			slog.String("op", event.Operation.String()),
		}
		if err := target.Refresh(); err != nil {
			w.failures.Add(1)
			w.logger.Debug("artifact_refresh_failed",
				append(attrs, slog.String("error", err.Error()))...)
			continue
		}
		w.refreshes.Add(1)
		w.logger.Debug("artifact_refreshed", attrs...)
	}
}

func cleanPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
