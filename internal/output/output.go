// Package output provides consistent CLI output formatting.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out      io.Writer
	styles   Styles
	useColor bool
}

// New creates a Writer that colours output only when out is a terminal and
// NO_COLOR is unset.
func New(out io.Writer) *Writer {
	if IsTTY(out) && !DetectNoColor() {
		return &Writer{out: out, styles: DefaultStyles(), useColor: true}
	}
	return NewPlain(out)
}

// NewPlain creates a Writer that never emits escape codes.
func NewPlain(out io.Writer) *Writer {
	return &Writer{out: out, styles: NoColorStyles()}
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// Color reports whether the writer emits colour.
func (w *Writer) Color() bool {
	return w.useColor
}

// Styles returns the active styles.
func (w *Writer) Styles() Styles {
	return w.styles
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", w.styles.Success.Render(msg))
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", w.styles.Warning.Render(msg))
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", w.styles.Error.Render(msg))
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Header prints a bold heading line.
func (w *Writer) Header(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(msg))
}

// Line prints msg as is.
func (w *Writer) Line(msg string) {
	_, _ = fmt.Fprintln(w.out, msg)
}

// Code prints a block with indentation.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// JSON writes v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
