package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventLog struct {
	mu     sync.Mutex
	events []FileEvent
}

func (l *eventLog) add(e FileEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) ops() []Operation {
	l.mu.Lock()
	defer l.mu.Unlock()
	ops := make([]Operation, 0, len(l.events))
	for _, e := range l.events {
		ops = append(ops, e.Operation)
	}
	return ops
}

func TestPollingWatcher_DetectChanges(t *testing.T) {
	// Given: a poller with a baseline where the file is absent
	path := filepath.Join(t.TempDir(), "themes.json")
	p := NewPollingWatcher(time.Hour, []string{path})
	p.state = p.scan()
	log := &eventLog{}

	// When: the file appears, changes, then disappears
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	p.detectChanges(log.add)

	require.NoError(t, os.WriteFile(path, []byte(`{"themes":[]}`), 0o644))
	require.NoError(t, os.Chtimes(path, time.Unix(200, 0), time.Unix(200, 0)))
	p.detectChanges(log.add)

	p.detectChanges(log.add)

	require.NoError(t, os.Remove(path))
	p.detectChanges(log.add)

	// Then: each transition is reported once
	assert.Equal(t, []Operation{OpCreate, OpModify, OpDelete}, log.ops())
}

func TestPollingWatcher_RunStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "themes.json")
	p := NewPollingWatcher(10*time.Millisecond, []string{path})
	log := &eventLog{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, log.add) }()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	assert.Eventually(t, func() bool { return len(log.ops()) == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
