package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_WritesUnderHome(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, 10, cfg.MaxSizeMB)
	assert.Equal(t, 5, cfg.MaxFiles)
	assert.True(t, cfg.WriteToStderr)
	assert.Equal(t, "server.log", filepath.Base(cfg.FilePath))
	assert.Contains(t, cfg.FilePath, ".surveydash")
}

func TestStdioConfig_NeverWritesToStderr(t *testing.T) {
	cfg := StdioConfig("debug")

	assert.Equal(t, "debug", cfg.Level)
	assert.False(t, cfg.WriteToStderr)
	assert.NotEmpty(t, cfg.FilePath)
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	// Given: a file-only config at debug level
	path := filepath.Join(t.TempDir(), "nested", "server.log")
	logger, cleanup, err := Setup(Config{Level: "debug", FilePath: path})
	require.NoError(t, err)

	// When: logging at debug
	logger.Debug("search_complete", slog.String("query", "wifi"), slog.Int("results", 3))
	cleanup()

	// Then: the entry is a parseable JSON line
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	entry := ParseLine(strings.TrimSpace(string(data)))
	require.True(t, entry.IsValid)
	assert.Equal(t, "DEBUG", entry.Level)
	assert.Equal(t, "search_complete", entry.Msg)
	assert.Equal(t, "wifi", entry.Attrs["query"])
	assert.EqualValues(t, 3, entry.Attrs["results"])
}

func TestSetup_LevelFiltersEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: path})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestSetup_NoWritersDiscards(t *testing.T) {
	logger, cleanup, err := Setup(Config{Level: "info"})
	require.NoError(t, err)
	defer cleanup()

	assert.NotPanics(t, func() { logger.Info("nowhere") })
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, LevelFromString(in), in)
	}
}

func newSmallWriter(t *testing.T, maxSize int64, maxFiles int) (*RotatingWriter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.log")
	w := &RotatingWriter{path: path, maxSize: maxSize, maxFiles: maxFiles}
	require.NoError(t, w.open())
	t.Cleanup(func() { _ = w.Close() })
	return w, path
}

func TestRotatingWriter_RotatesBySize(t *testing.T) {
	// Given: a writer with a 64-byte limit keeping two generations
	w, path := newSmallWriter(t, 64, 2)
	line := []byte(strings.Repeat("x", 39) + "\n")

	// When: four 40-byte lines are written
	for i := 0; i < 4; i++ {
		_, err := w.Write(line)
		require.NoError(t, err)
	}

	// Then: the live file and two generations exist, nothing beyond
	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")
	assert.Equal(t, []int{2, 1}, w.generations())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 40)
}

func TestRotatingWriter_AppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	w.SetSyncEachWrite(false)
	_, err = w.Write([]byte("new\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old\nnew\n", string(data))
}

func TestRotatingWriter_CloseIsIdempotent(t *testing.T) {
	w, _ := newSmallWriter(t, 1024, 1)

	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Sync())
}

func TestFindLogFile_Explicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.log")

	_, err := FindLogFile(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	got, err := FindLogFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

const sampleLog = `{"time":"2026-03-01T10:00:00.000Z","level":"INFO","msg":"artifact_reloaded","path":"themes.json"}
not json at all
{"time":"2026-03-01T10:00:01.000Z","level":"DEBUG","msg":"search_complete","query":"wifi","results":2}
{"time":"2026-03-01T10:00:02.000Z","level":"WARN","msg":"themes_unavailable","error_code":"ERR_201_ARTIFACT_NOT_FOUND"}
{"time":"2026-03-01T10:00:03.000Z","level":"ERROR","msg":"chat_failed","error_code":"ERR_303_UPSTREAM_FAILED"}
`

func writeSampleLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.log")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))
	return path
}

func TestParseLine(t *testing.T) {
	e := ParseLine(`{"time":"2026-03-01T10:00:00.5Z","level":"INFO","msg":"hello","a":1}`)
	require.True(t, e.IsValid)
	assert.Equal(t, "INFO", e.Level)
	assert.Equal(t, "hello", e.Msg)
	assert.Equal(t, 500*time.Millisecond, time.Duration(e.Time.Nanosecond()))
	assert.Len(t, e.Attrs, 1)

	bad := ParseLine("plain text")
	assert.False(t, bad.IsValid)
	assert.Equal(t, "plain text", bad.Raw)
}

func TestViewer_TailLastLines(t *testing.T) {
	path := writeSampleLog(t)
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})

	entries, err := v.Tail(path, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "themes_unavailable", entries[0].Msg)
	assert.Equal(t, "chat_failed", entries[1].Msg)
}

func TestViewer_TailFiltersByLevel(t *testing.T) {
	path := writeSampleLog(t)
	v := NewViewer(ViewerConfig{Level: "warn", NoColor: true}, &bytes.Buffer{})

	entries, err := v.Tail(path, 100)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.Equal(t, "ERROR", entries[1].Level)
}

func TestViewer_TailFiltersByPattern(t *testing.T) {
	path := writeSampleLog(t)
	v := NewViewer(ViewerConfig{Pattern: regexp.MustCompile(`ERR_\d+`), NoColor: true}, &bytes.Buffer{})

	entries, err := v.Tail(path, 100)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "themes_unavailable", entries[0].Msg)
}

func TestViewer_TailMissingFile(t *testing.T) {
	v := NewViewer(ViewerConfig{}, &bytes.Buffer{})
	_, err := v.Tail(filepath.Join(t.TempDir(), "missing.log"), 10)
	assert.Error(t, err)
}

func TestViewer_FormatSortsAttrs(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})
	e := ParseLine(`{"time":"2026-03-01T10:00:00.000Z","level":"warning","msg":"m","z":1,"a":"x"}`)

	assert.Equal(t, "10:00:00.000 WARN  m a=x z=1", v.Format(e))
	assert.Equal(t, "raw", v.Format(Entry{Raw: "raw"}))
}

func TestViewer_Print(t *testing.T) {
	var buf bytes.Buffer
	v := NewViewer(ViewerConfig{NoColor: true}, &buf)

	v.Print([]Entry{{Raw: "one"}, {Raw: "two"}})

	assert.Equal(t, "one\ntwo\n", buf.String())
}

func TestViewer_FollowSeesAppendedLines(t *testing.T) {
	// Given: an existing log being followed
	path := writeSampleLog(t)
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entries := make(chan Entry, 4)
	done := make(chan error, 1)
	go func() { done <- v.Follow(ctx, path, entries) }()
	time.Sleep(50 * time.Millisecond)

	// When: a new line is appended
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"time":"2026-03-01T10:00:04.000Z","level":"INFO","msg":"appended"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Then: only the appended entry is delivered
	select {
	case e := <-entries:
		assert.Equal(t, "appended", e.Msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no entry delivered")
	}

	cancel()
	assert.NoError(t, <-done)
}
