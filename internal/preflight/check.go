package preflight

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Aman-CERP/surveydash/internal/config"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON encodes the status as its string form.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker performs preflight validation checks.
type Checker struct {
	verbose bool
	output  io.Writer
	logDir  string
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose enables verbose output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// WithLogDir overrides the directory checked for write access.
func WithLogDir(dir string) Option {
	return func(c *Checker) {
		c.logDir = dir
	}
}

// New creates a new Checker with the given options.
func New(opts ...Option) *Checker {
	c := &Checker{
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check against cfg. A nil cfg reports a configuration
// failure and skips the checks that depend on it.
func (c *Checker) RunAll(_ context.Context, cfg *config.Config, cfgErr error) []CheckResult {
	results := []CheckResult{c.CheckConfig(cfg, cfgErr)}
	if cfg == nil {
		return append(results, c.CheckLogDir())
	}

	results = append(results,
		c.CheckThemes(cfg.Artifacts.ThemesPath),
		c.CheckMetrics(cfg.Artifacts.MetricsPath),
		c.CheckCredential(cfg),
		c.CheckLogDir(),
		c.CheckListenAddr(cfg.ListenAddr()),
	)
	return results
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns "failed", "ready_with_warnings" or "ready".
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status != StatusPass {
			hasWarnings = true
		}
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "surveydash doctor")
	_, _ = fmt.Fprintln(c.output, "=================")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "       %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(c.output)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))

	var failures, warnings []string
	for _, r := range results {
		switch {
		case r.IsCritical():
			failures = append(failures, r.Name+": "+r.Message)
		case r.Status != StatusPass:
			warnings = append(warnings, r.Name+": "+r.Message)
		}
	}
	printList(c.output, "error(s)", failures)
	printList(c.output, "warning(s)", warnings)
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "%d %s:\n", len(items), label)
	for _, item := range items {
		_, _ = fmt.Fprintf(w, "  - %s\n", item)
	}
}
