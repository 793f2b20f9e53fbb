package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_WithDefaults(t *testing.T) {
	got := Options{}.WithDefaults()
	assert.Equal(t, 200*time.Millisecond, got.DebounceWindow)
	assert.Equal(t, 5*time.Second, got.PollInterval)

	kept := Options{DebounceWindow: time.Second, PollInterval: -1}.WithDefaults()
	assert.Equal(t, time.Second, kept.DebounceWindow)
	assert.Equal(t, time.Duration(-1), kept.PollInterval)
}

func TestOperation_String(t *testing.T) {
	assert.Equal(t, "CREATE", OpCreate.String())
	assert.Equal(t, "MODIFY", OpModify.String())
	assert.Equal(t, "DELETE", OpDelete.String())
	assert.Equal(t, "RENAME", OpRename.String())
	assert.Equal(t, "UNKNOWN", Operation(99).String())
}

func TestArtifactWatcher_ConvertFiltersTargets(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "themes.json")
	w := New([]Target{{Path: target}}, Options{}, nil)

	tests := []struct {
		name   string
		event  fsnotify.Event
		wantOK bool
		wantOp Operation
	}{
		{"write to target", fsnotify.Event{Name: target, Op: fsnotify.Write}, true, OpModify},
		{"rename into place", fsnotify.Event{Name: target, Op: fsnotify.Create}, true, OpCreate},
		{"remove target", fsnotify.Event{Name: target, Op: fsnotify.Remove}, true, OpDelete},
		{"chmod ignored", fsnotify.Event{Name: target, Op: fsnotify.Chmod}, false, 0},
		{"temp file ignored", fsnotify.Event{Name: target + ".tmp", Op: fsnotify.Write}, false, 0},
		{"sibling ignored", fsnotify.Event{Name: filepath.Join(dir, "other.json"), Op: fsnotify.Create}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe, ok := w.convert(tt.event)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantOp, fe.Operation)
				assert.Equal(t, target, fe.Path)
			}
		})
	}
}

func TestArtifactWatcher_DispatchCountsOutcomes(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "themes.json")
	bad := filepath.Join(dir, "metrics.json")
	w := New([]Target{
		{Path: good, Refresh: func() error { return nil }},
		{Path: bad, Refresh: func() error { return errors.New("corrupt") }},
	}, Options{}, nil)

	w.dispatch([]FileEvent{
		{Path: good, Operation: OpModify},
		{Path: bad, Operation: OpModify},
		{Path: filepath.Join(dir, "unknown.json"), Operation: OpModify},
	})

	assert.EqualValues(t, 1, w.Refreshes())
	assert.EqualValues(t, 1, w.Failures())
}

func TestArtifactWatcher_RefreshesOnWrite(t *testing.T) {
	// Given: a watcher on an existing artifact
	dir := t.TempDir()
	path := filepath.Join(dir, "themes.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	var calls atomic.Int32
	w := New([]Target{{Path: path, Refresh: func() error {
		calls.Add(1)
		return nil
	}}}, Options{DebounceWindow: 20 * time.Millisecond, PollInterval: 20 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	require.Eventually(t, func() bool { return w.Mode() != ModeIdle }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	// When: the pipeline rewrites the file
	require.NoError(t, os.WriteFile(path, []byte(`{"themes":[]}`), 0o644))
	require.NoError(t, os.Chtimes(path, time.Unix(300, 0), time.Unix(300, 0)))

	// Then: the refresh runs and Run returns cleanly on cancel
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestArtifactWatcher_NoTargetsIsDisabled(t *testing.T) {
	w := New(nil, Options{}, nil)

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, ModeDisabled, w.Mode())
}

func TestArtifactWatcher_MissingDirFallsBackToPolling(t *testing.T) {
	// Given: an artifact whose directory does not exist yet
	path := filepath.Join(t.TempDir(), "later", "themes.json")
	w := New([]Target{{Path: path, Refresh: func() error { return nil }}},
		Options{PollInterval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	// Then: the watcher polls instead of giving up
	assert.Eventually(t, func() bool { return w.Mode() == ModePolling }, time.Second, 5*time.Millisecond)
}

func TestArtifactWatcher_MissingDirWithoutPollingIsDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "later", "themes.json")
	w := New([]Target{{Path: path}}, Options{PollInterval: -1}, nil)

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, ModeDisabled, w.Mode())
}
