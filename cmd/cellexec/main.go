package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cellexec/internal/assets"
	"cellexec/internal/config"
	"cellexec/internal/history"
	"cellexec/internal/logging"
	"cellexec/internal/security"
	"cellexec/internal/server"
	"cellexec/internal/session"
)

var version = "1.0.0"

var (
	// Global flags
	configPath string
	port       int
	logLevel   string

	cfg      *config.Config
	logger   *zap.Logger
	logLvl   zap.AtomicLevel
	logReady bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cellexec",
	Short: "cellexec - notebook cell execution runtime",
	Long: `cellexec hosts interactive notebook sessions over gRPC.

Each session runs a persistent Go interpreter: cells execute incrementally,
bindings persist across cells, and re-running a cell retracts its previous
effects while preserving state other cells still depend on.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if port > 0 {
			cfg.Server.Port = port
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		logger, logLvl, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return err
		}
		logReady = true
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logReady {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// serveCmd runs the gRPC server; same as the bare root invocation.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the cell execution gRPC server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cellexec %s\n", version)
	},
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validator := security.NewValidator(cfg.Security)

	fetcher, err := assets.NewMinioFetcher(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to object storage: %w", err)
	}

	var hist *history.Store
	if cfg.History.Path != "" {
		hist, err = history.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer hist.Close()
	}

	manager := session.NewManager(cfg, validator, fetcher, hist, logger)
	defer manager.EndAll()

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go manager.RunSweeper(sweepCtx)

	if watcher, werr := config.NewWatcher(configPath, logger); werr != nil {
		logger.Warn("config watcher unavailable", zap.Error(werr))
	} else {
		watcher.OnReload(func(next *config.Config) {
			manager.SetMaxSessions(next.Sessions.MaxSessions)
			manager.SetIdleTimeout(next.SessionIdleTimeout())
			validator.SetMaxCodeLength(next.Security.MaxCodeLength)
			if lvl, lerr := logging.ParseLevel(next.Logging.Level); lerr == nil {
				logLvl.SetLevel(lvl)
			}
		})
		if werr := watcher.Start(ctx); werr != nil {
			logger.Warn("config watcher failed to start", zap.Error(werr))
		} else {
			defer watcher.Stop()
		}
	}

	logger.Info("starting cellexec",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Int("max_sessions", cfg.Sessions.MaxSessions),
		zap.Duration("idle_timeout", cfg.SessionIdleTimeout()))

	return server.Serve(ctx, cfg, server.New(manager, logger), logger)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 0, "gRPC port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
