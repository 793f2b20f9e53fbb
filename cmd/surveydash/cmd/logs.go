package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/surveydash/internal/logging"
	"github.com/Aman-CERP/surveydash/internal/output"
)

// logsOptions holds CLI flags for logs.
type logsOptions struct {
	follow  bool
	lines   int
	level   string
	grep    string
	noColor bool
	file    string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View server logs",
		Long: `View and tail the surveydash log (~/.surveydash/logs/server.log).

By default, shows the last 50 lines. Use -f to follow new entries.

Examples:
  surveydash logs
  surveydash logs -n 200 --level warn
  surveydash logs -f --grep chat_`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.grep, "grep", "", "Only show lines matching this regex")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.file, "file", "", "Log file path")

	return cmd
}

func runLogs(ctx context.Context, cmd *cobra.Command, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.file)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.grep != "" {
		pattern, err = regexp.Compile(opts.grep)
		if err != nil {
			return fmt.Errorf("invalid grep pattern: %w", err)
		}
	}

	stdout := cmd.OutOrStdout()
	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: opts.noColor || !output.IsTTY(stdout) || output.DetectNoColor(),
	}, stdout)

	stderr := cmd.ErrOrStderr()
	_, _ = fmt.Fprintf(stderr, "Log file: %s\n---\n", path)

	if opts.follow {
		return followLogs(ctx, viewer, path, stdout, stderr)
	}

	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)
	return nil
}

func followLogs(ctx context.Context, viewer *logging.Viewer, path string, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	_, _ = fmt.Fprintln(stderr, "Following... (Ctrl+C to stop)")

	entries := make(chan logging.Entry, 100)
	errCh := make(chan error, 1)
	go func() {
		errCh <- viewer.Follow(ctx, path, entries)
	}()

	for {
		select {
		case e := <-entries:
			_, _ = fmt.Fprintln(stdout, viewer.Format(e))
		case err := <-errCh:
			return err
		case <-ctx.Done():
			_, _ = fmt.Fprintln(stderr, "Stopped.")
			return nil
		}
	}
}
