package watcher

import (
	"context"
	"os"
	"time"
)

// PollingWatcher detects changes to a fixed set of files by stat-ing them on
// an interval. It is the fallback when fsnotify is unavailable.
type PollingWatcher struct {
	interval time.Duration
	paths    []string
	state    map[string]fileSnapshot
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// NewPollingWatcher creates a poller for paths.
func NewPollingWatcher(interval time.Duration, paths []string) *PollingWatcher {
	return &PollingWatcher{
		interval: interval,
		paths:    paths,
		state:    make(map[string]fileSnapshot),
	}
}

// Run records a baseline, then calls emit for every change until ctx is
// cancelled. Files that do not exist yet are reported as CREATE once they
// appear.
func (p *PollingWatcher) Run(ctx context.Context, emit func(FileEvent)) error {
	p.state = p.scan()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.detectChanges(emit)
		}
	}
}

func (p *PollingWatcher) scan() map[string]fileSnapshot {
	current := make(map[string]fileSnapshot, len(p.paths))
	for _, path := range p.paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		current[path] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
	}
	return current
}

func (p *PollingWatcher) detectChanges(emit func(FileEvent)) {
	current := p.scan()
	now := time.Now()

	for _, path := range p.paths {
		prev, had := p.state[path]
		cur, has := current[path]
		switch {
		case has && !had:
			emit(FileEvent{Path: path, Operation: OpCreate, Timestamp: now})
		case had && !has:
			emit(FileEvent{Path: path, Operation: OpDelete, Timestamp: now})
		case has && (!prev.modTime.Equal(cur.modTime) || prev.size != cur.size):
			emit(FileEvent{Path: path, Operation: OpModify, Timestamp: now})
		}
	}

	p.state = current
}
