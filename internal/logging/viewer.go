package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Entry is one parsed JSON log line.
type Entry struct {
	Time    time.Time
	Level   string
	Msg     string
	Attrs   map[string]any
	Raw     string
	IsValid bool
}

// ViewerConfig configures the log viewer.
type ViewerConfig struct {
	Level   string         // minimum level shown
	Pattern *regexp.Regexp // raw-line filter
	NoColor bool
}

// Viewer reads and formats the server log.
type Viewer struct {
	config ViewerConfig
	out    io.Writer
	levels map[string]lipgloss.Style
}

// NewViewer creates a log viewer writing to out.
func NewViewer(cfg ViewerConfig, out io.Writer) *Viewer {
	v := &Viewer{config: cfg, out: out, levels: map[string]lipgloss.Style{}}
	if !cfg.NoColor {
		v.levels = map[string]lipgloss.Style{
			"DEBUG": lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
			"INFO":  lipgloss.NewStyle().Foreground(lipgloss.Color("154")),
			"WARN":  lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
			"ERROR": lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		}
	}
	return v
}

// Tail returns the matching entries among the last n lines of path.
func (v *Viewer) Tail(path string, n int) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	var entries []Entry
	for _, line := range lines {
		if e := ParseLine(line); v.matches(e) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Follow sends entries appended to path until ctx is cancelled.
func (v *Viewer) Follow(ctx context.Context, path string, entries chan<- Entry) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	reader := bufio.NewReader(f)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var partial string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		for {
			chunk, err := reader.ReadString('\n')
			partial += chunk
			if err != nil {
				break
			}
			line := strings.TrimSuffix(partial, "\n")
			partial = ""
			if line == "" {
				continue
			}
			if e := ParseLine(line); v.matches(e) {
				select {
				case entries <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

// Print writes formatted entries to the viewer output.
func (v *Viewer) Print(entries []Entry) {
	for _, e := range entries {
		_, _ = fmt.Fprintln(v.out, v.Format(e))
	}
}

// Format renders an entry as "15:04:05.000 LEVEL msg k=v ...".
// Attributes are sorted by key.
func (v *Viewer) Format(e Entry) string {
	if !e.IsValid {
		return e.Raw
	}

	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(e.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(v.formatLevel(e.Level))
	b.WriteByte(' ')
	b.WriteString(e.Msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Attrs[k])
	}
	return b.String()
}

func (v *Viewer) formatLevel(level string) string {
	upper := strings.ToUpper(level)
	if upper == "WARNING" {
		upper = "WARN"
	}
	padded := fmt.Sprintf("%-5s", upper)
	if style, ok := v.levels[upper]; ok {
		return style.Render(padded)
	}
	return padded
}

func (v *Viewer) matches(e Entry) bool {
	if v.config.Level != "" && LevelFromString(e.Level) < LevelFromString(v.config.Level) {
		return false
	}
	if v.config.Pattern != nil && !v.config.Pattern.MatchString(e.Raw) {
		return false
	}
	return true
}

// ParseLine parses a slog JSON line. Lines that are not JSON come back with
// IsValid false and only Raw set.
func ParseLine(line string) Entry {
	e := Entry{Raw: line}

	var data map[string]any
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return e
	}
	e.IsValid = true

	if t, ok := data["time"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			e.Time = parsed
		}
	}
	e.Level, _ = data["level"].(string)
	e.Msg, _ = data["msg"].(string)

	e.Attrs = make(map[string]any, len(data))
	for k, val := range data {
		switch k {
		case "time", "level", "msg":
		default:
			e.Attrs[k] = val
		}
	}
	return e
}
