package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitBatch(t *testing.T, d *Debouncer) []FileEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced batch")
		return nil
	}
}

func TestDebouncer_BurstCollapsesToOneEvent(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(50*time.Millisecond, nil)
	defer d.Stop()

	// When: a write produces several modify events in quick succession
	for i := 0; i < 5; i++ {
		d.Add(FileEvent{Path: "/a/themes.json", Operation: OpModify})
		time.Sleep(5 * time.Millisecond)
	}

	// Then: one MODIFY comes out
	batch := waitBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncer_DifferentPathsShareBatch(t *testing.T) {
	d := NewDebouncer(50*time.Millisecond, nil)
	defer d.Stop()

	d.Add(FileEvent{Path: "/a/themes.json", Operation: OpCreate})
	d.Add(FileEvent{Path: "/a/metrics.json", Operation: OpModify})

	batch := waitBatch(t, d)
	require.Len(t, batch, 2)
	ops := map[string]Operation{}
	for _, e := range batch {
		ops[e.Path] = e.Operation
	}
	assert.Equal(t, OpCreate, ops["/a/themes.json"])
	assert.Equal(t, OpModify, ops["/a/metrics.json"])
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name     string
		first    Operation
		next     Operation
		want     Operation
		wantKeep bool
	}{
		{"create then modify stays create", OpCreate, OpModify, OpCreate, true},
		{"create then delete cancels", OpCreate, OpDelete, 0, false},
		{"modify then delete is delete", OpModify, OpDelete, OpDelete, true},
		{"delete then create is modify", OpDelete, OpCreate, OpModify, true},
		{"modify then modify is modify", OpModify, OpModify, OpModify, true},
		{"rename then create is create", OpRename, OpCreate, OpCreate, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keep := coalesce(tt.first,
				FileEvent{Path: "p", Operation: tt.first},
				FileEvent{Path: "p", Operation: tt.next})

			assert.Equal(t, tt.wantKeep, keep)
			if keep {
				assert.Equal(t, tt.want, got.Operation)
			}
		})
	}
}

func TestDebouncer_CancelledPairEmitsNothing(t *testing.T) {
	d := NewDebouncer(30*time.Millisecond, nil)
	defer d.Stop()

	d.Add(FileEvent{Path: "/a/tmp.json", Operation: OpCreate})
	d.Add(FileEvent{Path: "/a/tmp.json", Operation: OpDelete})

	select {
	case batch := <-d.Output():
		assert.Empty(t, batch)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_StopClosesOutputAndIgnoresAdds(t *testing.T) {
	d := NewDebouncer(10*time.Millisecond, nil)

	d.Stop()
	d.Stop()
	d.Add(FileEvent{Path: "x", Operation: OpModify})

	_, ok := <-d.Output()
	assert.False(t, ok)
}
