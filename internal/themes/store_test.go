package themes

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeThemes(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestStore_Load_MissingFileFailsOpen(t *testing.T) {
	// Given: a store pointing at a file that does not exist
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore(filepath.Join(t.TempDir(), "themes.json"), WithClock(func() time.Time { return now }))

	// When: loading
	td := s.Load()

	// Then: an empty snapshot stamped with the current time is returned
	require.NotNil(t, td)
	assert.Empty(t, td.Themes)
	assert.Equal(t, "2026-01-01T00:00:00Z", td.Metadata.GeneratedAt)
	assert.Nil(t, s.Snapshot())
}

func TestStore_Load_CorruptFileFailsOpen(t *testing.T) {
	// Given: an unparsable artifact
	path := filepath.Join(t.TempDir(), "themes.json")
	writeThemes(t, path, "not json", time.Unix(100, 0))
	s := NewStore(path)

	// When: loading
	td := s.Load()

	// Then: the store returns an empty snapshot instead of failing
	assert.Empty(t, td.Themes)
	assert.NotEmpty(t, td.Metadata.GeneratedAt)
}

func TestStore_Load_DuplicateIDsFailOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "themes.json")
	writeThemes(t, path, `{"themes":[{"id":1},{"id":1}]}`, time.Unix(100, 0))
	s := NewStore(path)

	assert.Empty(t, s.Load().Themes)
}

func TestStore_Load_ReturnsIdenticalSnapshotWhileUnchanged(t *testing.T) {
	// Given: a valid artifact
	path := filepath.Join(t.TempDir(), "themes.json")
	writeThemes(t, path, sampleArtifact, time.Unix(100, 0))
	s := NewStore(path)

	// When: loading twice
	first := s.Load()
	second := s.Load()

	// Then: both calls share the same object
	assert.Same(t, first, second)
	assert.Len(t, first.Themes, 2)
}

func TestStore_Load_PicksUpNewMtime(t *testing.T) {
	// Given: a loaded store
	path := filepath.Join(t.TempDir(), "themes.json")
	writeThemes(t, path, sampleArtifact, time.Unix(100, 0))
	s := NewStore(path)
	first := s.Load()

	// When: the artifact is replaced with a newer mtime
	writeThemes(t, path, `{"metadata":{"generated_at":"later"},"themes":[{"id":9,"label":"new","quotes":["q"]}]}`, time.Unix(200, 0))
	second := s.Load()

	// Then: the new snapshot is served
	assert.NotSame(t, first, second)
	assert.Equal(t, "later", second.Metadata.GeneratedAt)
	assert.Equal(t, 9, second.Themes[0].ID)
}

func TestStore_Load_RecoversAfterFileAppears(t *testing.T) {
	// Given: a store whose artifact is initially missing
	path := filepath.Join(t.TempDir(), "themes.json")
	s := NewStore(path)
	assert.Empty(t, s.Load().Themes)

	// When: the pipeline writes the artifact
	writeThemes(t, path, sampleArtifact, time.Unix(100, 0))

	// Then: the next load sees it
	assert.Len(t, s.Load().Themes, 2)
}

func TestStore_Refresh_ReloadsWithSameMtime(t *testing.T) {
	// Given: a loaded store
	path := filepath.Join(t.TempDir(), "themes.json")
	writeThemes(t, path, sampleArtifact, time.Unix(100, 0))
	s := NewStore(path)
	first := s.Load()

	// When: content changes but the mtime is restored
	writeThemes(t, path, `{"themes":[{"id":5,"label":"only"}]}`, time.Unix(100, 0))
	stale := s.Load()
	fresh := s.Refresh()

	// Then: Load keeps the cached snapshot and Refresh sees the new content
	assert.Same(t, first, stale)
	require.Len(t, fresh.Themes, 1)
	assert.Equal(t, "only", fresh.Themes[0].Label)
	assert.Same(t, fresh, s.Load())
}

func TestStore_Snapshot_ReportsMtime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "themes.json")
	writeThemes(t, path, sampleArtifact, time.Unix(100, 0))
	s := NewStore(path)

	snap := s.Snapshot()

	require.NotNil(t, snap)
	assert.True(t, snap.ModTime.Equal(time.Unix(100, 0)))
	assert.Equal(t, path, s.Path())
}

func TestStore_Reload_ReportsFailure(t *testing.T) {
	// Given: a store whose artifact is missing
	path := filepath.Join(t.TempDir(), "themes.json")
	s := NewStore(path)

	// When/Then: Reload surfaces the not-found error while Load fails open
	assert.Error(t, s.Reload())
	assert.Empty(t, s.Load().Themes)

	writeThemes(t, path, sampleArtifact, time.Unix(100, 0))
	require.NoError(t, s.Reload())
	assert.Len(t, s.Load().Themes, 2)
}
