package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/surveydash/internal/output"
	"github.com/Aman-CERP/surveydash/internal/server"
	"github.com/Aman-CERP/surveydash/internal/watcher"
)

// serveOptions holds CLI flags for serve.
type serveOptions struct {
	address string
	port    int
	noWatch bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP backend",
		Long: `Run the HTTP backend for the survey dashboard.

Routes:
  GET  /api/evidence            theme overview
  GET  /api/evidence?theme=ID   one theme
  GET  /api/evidence?search=Q   evidence search
  POST /api/chat                grounded chat
  GET  /api/metrics             pipeline metrics
  GET  /api/telemetry           query telemetry
  GET  /healthz                 health

Artifacts are watched for changes unless --no-watch is set.

Examples:
  surveydash serve
  surveydash serve --port 9090
  surveydash serve -C ./project --no-watch`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationStderrLogs: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.address, "address", "", "Listen address (overrides config)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Listen port (overrides config)")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "Disable artifact file watching")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, root *rootOptions, opts serveOptions) error {
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
	if opts.address != "" {
		a.cfg.Server.Address = opts.address
	}
	if opts.port > 0 {
		a.cfg.Server.Port = opts.port
	}

	// Warm the caches so the first request does not pay for the read and
	// a missing artifact is reported at startup.
	data := a.themes.Load()
	a.metrics.Load()

	deps := server.Deps{
		Search:    a.search,
		Chat:      a.chat,
		Themes:    a.themes,
		Metrics:   a.metrics,
		Telemetry: a.tel,
	}

	var w *watcher.ArtifactWatcher
	if a.cfg.Artifacts.Watch && !opts.noWatch {
		w = watcher.New([]watcher.Target{
			{Path: a.themes.Path(), Refresh: a.themes.Reload},
			{Path: a.metrics.Path(), Refresh: a.metrics.Reload},
		}, watcher.Options{DebounceWindow: a.cfg.WatchDebounce()}, logger)
		deps.Watcher = w
	}

	srv := server.New(serverConfig(a.cfg), deps, logger)

	out := output.New(cmd.ErrOrStderr())
	out.Statusf("📊", "%d themes loaded from %s", len(data.Themes), a.themes.Path())
	if !a.chat.Available() {
		out.Warningf("Chat disabled: set %s to enable it", a.cfg.Chat.APIKeyEnv)
	}
	out.Statusf("🚀", "Listening on http://%s", a.cfg.ListenAddr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Run(gctx); err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	if w != nil {
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	err = g.Wait()
	logger.Info("serve_stopped", slog.Bool("clean", err == nil))
	return err
}
