// Package cmd provides the CLI commands for surveydash.
package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/surveydash/internal/config"
	surveyerrors "github.com/Aman-CERP/surveydash/internal/errors"
	"github.com/Aman-CERP/surveydash/internal/logging"
	"github.com/Aman-CERP/surveydash/internal/profiling"
	"github.com/Aman-CERP/surveydash/pkg/version"
)

// annotationStderrLogs marks commands whose logs are mirrored to stderr.
// Everything else logs to the file only so stdout stays clean for output
// and for the MCP stdio stream.
const annotationStderrLogs = "stderr-logs"

// rootOptions holds persistent flags shared by all subcommands.
type rootOptions struct {
	dir      string
	logLevel string
	logFile  string
	debug    bool
	profile  profiling.Options

	cleanup  func()
	profiler *profiling.Session
}

// NewRootCmd creates the root command for the surveydash CLI.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "surveydash",
		Short: "Survey analytics backend for the theme dashboard",
		Long: `surveydash serves the survey theme dashboard: evidence search over
themed respondent quotes, theme listings, and a grounded chat assistant.

It reads the themes.json and metrics.json artifacts produced by the
offline pipeline and picks up new versions without a restart.

Run 'surveydash serve' in the directory holding .surveydash.yaml.`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.setupLogging(cmd); err != nil {
				return err
			}
			return opts.startProfiling()
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			err := opts.stopProfiling()
			opts.stopLogging()
			return err
		},
	}

	cmd.SetVersionTemplate("surveydash version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&opts.dir, "dir", "C", ".", "Project directory holding .surveydash.yaml")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	cmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "Log file path (default ~/.surveydash/logs/server.log)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.PersistentFlags().StringVar(&opts.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Heap, "profile-mem", "", "Write heap profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMCPCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newThemesCmd(opts))
	cmd.AddCommand(newChatCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newDoctorCmd(opts))
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupLogging installs the slog default for the running command.
func (o *rootOptions) setupLogging(cmd *cobra.Command) error {
	level := o.logLevel
	if o.debug {
		level = "debug"
	}

	cfg := logging.StdioConfig(level)
	if cmd.Annotations[annotationStderrLogs] == "true" {
		cfg = logging.DefaultConfig()
		cfg.Level = level
	}
	if cfg.Level == "" {
		cfg.Level = configuredLogLevel(o.dir)
	}
	if o.logFile != "" {
		cfg.FilePath = o.logFile
	}

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	o.cleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("logging_started",
		slog.String("command", cmd.Name()),
		slog.String("log_file", cfg.FilePath),
		slog.String("version", version.Version))
	return nil
}

// configuredLogLevel returns server.log_level from the project config, or
// "info" when the config cannot be loaded. Load errors surface later when
// the command itself loads the config.
func configuredLogLevel(dir string) string {
	cfg, err := config.Load(dir)
	if err != nil || cfg.Server.LogLevel == "" {
		return "info"
	}
	return cfg.Server.LogLevel
}

func (o *rootOptions) startProfiling() error {
	if !o.profile.Enabled() {
		return nil
	}
	session, err := profiling.Start(o.profile)
	if err != nil {
		return err
	}
	o.profiler = session
	return nil
}

func (o *rootOptions) stopProfiling() error {
	if o.profiler == nil {
		return nil
	}
	err := o.profiler.Stop()
	o.profiler = nil
	return err
}

func (o *rootOptions) stopLogging() {
	if o.cleanup != nil {
		o.cleanup()
		o.cleanup = nil
	}
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		printError(cmd.ErrOrStderr(), err)
	}
	return err
}

// printError renders SurveyErrors with their code and hint; anything else
// (flag parsing, usage) is printed as is.
func printError(w io.Writer, err error) {
	if _, ok := surveyerrors.As(err); ok {
		_, _ = fmt.Fprint(w, surveyerrors.FormatForCLI(err))
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
}
