package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// RotatingWriter is an io.Writer that rotates its file by size:
// server.log becomes server.log.1, .1 becomes .2, and so on up to maxFiles.
type RotatingWriter struct {
	path     string
	maxSize  int64
	maxFiles int

	mu       sync.Mutex
	file     *os.File
	written  int64
	syncEach bool
}

// NewRotatingWriter opens path for appending. Each write is synced so that
// `surveydash logs -f` sees entries as they happen.
func NewRotatingWriter(path string, maxSizeMB, maxFiles int) (*RotatingWriter, error) {
	w := &RotatingWriter{
		path:     path,
		maxSize:  int64(maxSizeMB) << 20,
		maxFiles: maxFiles,
		syncEach: true,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// SetSyncEachWrite toggles the fsync after every write.
func (w *RotatingWriter) SetSyncEachWrite(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.syncEach = enabled
}

// Write implements io.Writer, rotating first when p would overflow the file.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.written > 0 && w.written+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
		}
	}
	if w.file == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.written += int64(n)
	if w.syncEach && err == nil {
		_ = w.file.Sync()
	}
	return n, err
}

// Close closes the underlying file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Sync flushes the file to disk.
func (w *RotatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	w.file = f
	w.written = info.Size()
	return nil
}

func (w *RotatingWriter) rotate() error {
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			return fmt.Errorf("failed to close log file: %w", err)
		}
		w.file = nil
	}

	// Highest generation first so renames never overwrite.
	gens := w.generations()
	for _, g := range gens {
		if g >= w.maxFiles {
			_ = os.Remove(w.generationPath(g))
			continue
		}
		_ = os.Rename(w.generationPath(g), w.generationPath(g+1))
	}

	if err := os.Rename(w.path, w.generationPath(1)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	w.written = 0
	return w.open()
}

// generations returns the numeric suffixes of existing rotated files,
// highest first.
func (w *RotatingWriter) generations() []int {
	base := filepath.Base(w.path) + "."
	matches, _ := filepath.Glob(w.path + ".*")

	var gens []int
	for _, m := range matches {
		n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(m), base))
		if err == nil && n > 0 {
			gens = append(gens, n)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(gens)))
	return gens
}

func (w *RotatingWriter) generationPath(n int) string {
	return fmt.Sprintf("%s.%d", w.path, n)
}
