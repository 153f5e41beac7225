// Studydocs serves a folder of study documents to MCP clients.
//
// The folder is exposed read-only through three tools: list_documents,
// read_document and search_documents. The same operations are available as
// subcommands for use from a shell.
//
// Configuration is loaded from ~/.config/studydocs/config.yaml (or .toml) and
// STUDYDOCS_* environment variables. See internal/config for details.
//
// Usage:
//
//	# Serve MCP over stdio (for desktop clients)
//	studydocs serve
//
//	# Serve MCP over streamable HTTP
//	studydocs serve --transport http
//
//	# Search from the shell
//	studydocs search mitochondria
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/studydocs/internal/config"
	"github.com/fyrsmithlabs/studydocs/internal/corpus"
	"github.com/fyrsmithlabs/studydocs/internal/logging"
	"github.com/fyrsmithlabs/studydocs/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	// configPath overrides the default config file location
	configPath string
	// rootOverride replaces docs.root from the config
	rootOverride string
	// logLevel replaces logging.level from the config
	logLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "studydocs",
	Short: "Read-only MCP access to a folder of study documents",
	Long: `studydocs exposes a folder of study documents to MCP clients.

Documents can be listed, read by relative path and searched by phrase. Paths
that resolve outside the folder are always rejected.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/studydocs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&rootOverride, "root", "", "documents folder (overrides docs.root)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn or error")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("studydocs by Fyrsmith Labs\n")
		cmd.Printf("Version:    %s\n", version)
		cmd.Printf("Commit:     %s\n", gitCommit)
		cmd.Printf("Build Date: %s\n", buildDate)
	},
}

// loadConfig loads the config file and environment, then applies flag
// overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if rootOverride != "" {
		cfg.Docs.Root = rootOverride
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// app holds the dependencies shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	tel    *telemetry.Telemetry
	docs   *corpus.Corpus
}

// newApp initializes telemetry, logging and the corpus from cfg. A telemetry
// failure is logged and the process continues without it.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logCfg, err := logging.FromSettings(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}

	tel, telErr := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry, version))

	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if telErr != nil {
		logger.Warn(ctx, "telemetry disabled", zap.Error(telErr))
	} else if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded", zap.Strings("reasons", h.Reasons))
	}

	docs, err := corpus.New(corpus.Config{
		Root:          cfg.Docs.Root,
		MaxChars:      cfg.Docs.MaxChars,
		MaxResults:    cfg.Docs.MaxResults,
		SnippetRadius: cfg.Docs.SnippetRadius,
		Exclude:       cfg.Docs.Exclude,
		IgnoreFile:    cfg.Docs.IgnoreFile,
	}, logger.Underlying())
	if err != nil {
		_ = logger.Sync()
		_ = tel.Shutdown(ctx)
		return nil, fmt.Errorf("failed to open documents folder: %w", err)
	}

	if !docs.RootExists() {
		logger.Warn(ctx, "documents folder does not exist", zap.String("root", docs.Root()))
	}

	return &app{cfg: cfg, logger: logger, tel: tel, docs: docs}, nil
}

// Close flushes logs and telemetry.
func (a *app) Close(ctx context.Context) {
	if err := a.tel.Shutdown(ctx); err != nil {
		a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync() // Best-effort sync
}

// withApp loads configuration, runs fn with a ready app and closes it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	return fn(ctx, a)
}
