package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	surveyerrors "github.com/Aman-CERP/surveydash/internal/errors"
)

type doc struct {
	Name string `json:"name"`
}

func decodeDoc(data []byte) (doc, error) {
	var d doc
	err := json.Unmarshal(data, &d)
	return d, err
}

func writeArtifact(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestCache_Get_LoadsOnFirstCall(t *testing.T) {
	// Given: an artifact on disk
	path := filepath.Join(t.TempDir(), "doc.json")
	writeArtifact(t, path, `{"name":"first"}`, time.Unix(1000, 0))
	c := NewCache(path, decodeDoc)

	// When: getting the snapshot
	snap, err := c.Get()

	// Then: the decoded value is returned with the file mtime
	require.NoError(t, err)
	assert.Equal(t, "first", snap.Data.Name)
	assert.True(t, snap.ModTime.Equal(time.Unix(1000, 0)))
	assert.Equal(t, path, snap.Path)
	assert.Equal(t, uint64(1), c.Reloads())
}

func TestCache_Get_ReusesSnapshotWhenMtimeUnchanged(t *testing.T) {
	// Given: a loaded cache
	path := filepath.Join(t.TempDir(), "doc.json")
	writeArtifact(t, path, `{"name":"first"}`, time.Unix(1000, 0))
	c := NewCache(path, decodeDoc)
	first, err := c.Get()
	require.NoError(t, err)

	// When: getting again without touching the file
	second, err := c.Get()

	// Then: the same snapshot pointer is served and nothing is re-read
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, uint64(1), c.Reloads())
}

func TestCache_Get_ReloadsWhenMtimeChanges(t *testing.T) {
	// Given: a loaded cache
	path := filepath.Join(t.TempDir(), "doc.json")
	writeArtifact(t, path, `{"name":"first"}`, time.Unix(1000, 0))
	c := NewCache(path, decodeDoc)
	_, err := c.Get()
	require.NoError(t, err)

	// When: the pipeline rewrites the file
	writeArtifact(t, path, `{"name":"second"}`, time.Unix(2000, 0))
	snap, err := c.Get()

	// Then: the new content is visible
	require.NoError(t, err)
	assert.Equal(t, "second", snap.Data.Name)
	assert.Equal(t, uint64(2), c.Reloads())
}

func TestCache_Get_MissingFileReturnsNotFound(t *testing.T) {
	// Given: a path with no file
	c := NewCache(filepath.Join(t.TempDir(), "missing.json"), decodeDoc)

	// When: getting the snapshot
	snap, err := c.Get()

	// Then: a data-unavailable error is returned
	assert.Nil(t, snap)
	require.Error(t, err)
	assert.Equal(t, surveyerrors.ErrCodeArtifactNotFound, surveyerrors.GetCode(err))
	assert.Equal(t, surveyerrors.CategoryData, surveyerrors.GetCategory(err))
}

func TestCache_Get_CorruptFileKeepsPreviousSnapshot(t *testing.T) {
	// Given: a loaded cache
	path := filepath.Join(t.TempDir(), "doc.json")
	writeArtifact(t, path, `{"name":"good"}`, time.Unix(1000, 0))
	c := NewCache(path, decodeDoc)
	good, err := c.Get()
	require.NoError(t, err)

	// When: the file is replaced with invalid JSON
	writeArtifact(t, path, `{"name":`, time.Unix(2000, 0))
	snap, err := c.Get()

	// Then: the error is reported and the good snapshot stays cached
	assert.Nil(t, snap)
	assert.Equal(t, surveyerrors.ErrCodeArtifactCorrupt, surveyerrors.GetCode(err))
	assert.Same(t, good, c.Current())
}

func TestCache_Refresh_ForcesReload(t *testing.T) {
	// Given: a loaded cache
	path := filepath.Join(t.TempDir(), "doc.json")
	writeArtifact(t, path, `{"name":"first"}`, time.Unix(1000, 0))
	c := NewCache(path, decodeDoc)
	first, err := c.Get()
	require.NoError(t, err)

	// When: refreshing with the same mtime
	second, err := c.Refresh()

	// Then: a new snapshot is produced
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, uint64(2), c.Reloads())
}

func TestCache_WithClock_StampsLoadedAt(t *testing.T) {
	// Given: a cache with a fixed clock
	path := filepath.Join(t.TempDir(), "doc.json")
	writeArtifact(t, path, `{"name":"first"}`, time.Unix(1000, 0))
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewCache(path, decodeDoc, WithClock(func() time.Time { return fixed }))

	// When: loading
	snap, err := c.Get()

	// Then: LoadedAt comes from the clock
	require.NoError(t, err)
	assert.Equal(t, fixed, snap.LoadedAt)
}

func TestCache_Get_ConcurrentReaders(t *testing.T) {
	// Given: an artifact on disk
	path := filepath.Join(t.TempDir(), "doc.json")
	writeArtifact(t, path, `{"name":"first"}`, time.Unix(1000, 0))
	c := NewCache(path, decodeDoc)

	// When: many goroutines read at once
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := c.Get()
			assert.NoError(t, err)
			assert.Equal(t, "first", snap.Data.Name)
		}()
	}
	wg.Wait()

	// Then: every reader saw a complete snapshot
	assert.NotNil(t, c.Current())
}
