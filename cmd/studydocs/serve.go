package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/studydocs/internal/config"
	sdhttp "github.com/fyrsmithlabs/studydocs/internal/http"
	"github.com/fyrsmithlabs/studydocs/internal/mcp"
	"github.com/fyrsmithlabs/studydocs/internal/watch"
)

var (
	// transportFlag overrides server.transport
	transportFlag string
	// portFlag overrides server.http_port
	portFlag int
	// watchFlag turns on docs.watch
	watchFlag bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(toolsCmd)

	serveCmd.Flags().StringVar(&transportFlag, "transport", "", "MCP transport: stdio or http (default server.transport)")
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "HTTP port (default server.http_port)")
	serveCmd.Flags().BoolVar(&watchFlag, "watch", false, "log document changes while serving")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the documents over MCP",
	Long: `Serve the documents folder to MCP clients.

With the stdio transport (the default) the server speaks MCP on stdin/stdout
and logs to stderr. With the http transport it listens on
server.http_host:server.http_port and serves:
  /mcp      streamable MCP endpoint
  /health   health check
  /metrics  Prometheus metrics

Examples:
  # Desktop client configuration
  studydocs serve --root ~/StudyDocs

  # Local HTTP endpoint
  studydocs serve --transport http --port 9191`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the MCP tools this server registers",
	Args:  cobra.NoArgs,
	RunE:  runTools,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if transportFlag != "" {
		cfg.Server.Transport = transportFlag
	}
	if portFlag != 0 {
		cfg.Server.HTTPPort = portFlag
	}
	if watchFlag {
		cfg.Docs.Watch = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	return serve(ctx, a, nil)
}

// serve runs the configured transport until ctx is cancelled. A nil ln makes
// the http transport listen on the configured address.
func serve(ctx context.Context, a *app, ln net.Listener) error {
	mcpServer, err := newMCPServer(a)
	if err != nil {
		return err
	}

	if a.cfg.Docs.Watch {
		w, err := startWatcher(ctx, a)
		if err != nil {
			a.logger.Warn(ctx, "document watch disabled", zap.Error(err))
		} else {
			defer w.Stop()
			go logChanges(ctx, a, w)
		}
	}

	a.logger.Info(ctx, "starting studydocs",
		zap.String("version", version),
		zap.String("transport", a.cfg.Server.Transport),
		zap.String("root", a.docs.Root()),
		zap.Bool("watch", a.cfg.Docs.Watch))

	switch a.cfg.Server.Transport {
	case config.TransportHTTP:
		return serveHTTP(ctx, a, mcpServer, ln)
	default:
		return mcpServer.Run(ctx)
	}
}

func newMCPServer(a *app) (*mcp.Server, error) {
	s, err := mcp.NewServer(&mcp.Config{
		Name:    a.cfg.Server.Name,
		Version: version,
	}, a.docs, a.logger, a.tel)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP server: %w", err)
	}
	return s, nil
}

func serveHTTP(ctx context.Context, a *app, mcpServer *mcp.Server, ln net.Listener) error {
	srv, err := sdhttp.NewServer(&sdhttp.Config{
		Host:      a.cfg.Server.HTTPHost,
		Port:      a.cfg.Server.HTTPPort,
		RateLimit: a.cfg.Server.RateLimit,
		RateBurst: a.cfg.Server.RateBurst,
	}, a.docs, mcpServer.HTTPHandler(), a.logger, a.tel)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	if ln == nil {
		ln, err = net.Listen("tcp", srv.Addr())
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", srv.Addr(), err)
		}
	}

	a.logger.Info(ctx, "server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s/health", ln.Addr())),
		zap.String("mcp_endpoint", "/mcp"),
		zap.String("metrics_endpoint", "/metrics"))

	return srv.Serve(ctx, ln, a.cfg.Server.ShutdownTimeout.Duration())
}

func startWatcher(ctx context.Context, a *app) (*watch.Watcher, error) {
	w, err := watch.New(a.docs.Root(), a.docs, a.logger)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return nil, err
	}
	return w, nil
}

// logChanges logs each document change until the watcher stops.
func logChanges(ctx context.Context, a *app, w *watch.Watcher) {
	for ev := range w.Events() {
		a.logger.Info(ctx, "document changed",
			zap.String("op", ev.Op.String()),
			zap.String("path", ev.Path),
			zap.Bool("dir", ev.Dir))
	}
}

func runTools(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		s, err := newMCPServer(a)
		if err != nil {
			return err
		}
		tools, err := s.ListTools(ctx)
		if err != nil {
			return fmt.Errorf("failed to list tools: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, t := range tools {
			fmt.Fprintf(out, "%s\n  %s\n", t.Name, t.Description)
		}
		return nil
	})
}
