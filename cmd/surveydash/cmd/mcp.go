package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/surveydash/internal/mcp"
)

func newMCPCmd(root *rootOptions) *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server over stdio",
		Long: `Run a Model Context Protocol server exposing the survey themes to
AI assistants.

Tools: search_quotes, get_theme, list_themes, chat_context.
Resources: surveydash://themes, surveydash://metrics.

Stdout carries the protocol stream; logs go to the log file only.

Example client configuration:
  {"command": "surveydash", "args": ["mcp", "-C", "/path/to/project"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd.Context(), root, transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport (stdio)")

	return cmd
}

func runMCP(ctx context.Context, root *rootOptions, transport string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	a, err := newApp(root.dir, logger)
	if err != nil {
		return err
	}

	srv, err := mcp.NewServer(a.search, a.chat, a.metrics, logger)
	if err != nil {
		return err
	}
	return srv.Serve(ctx, transport)
}
