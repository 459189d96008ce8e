package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sma-monitor/dashboard/internal/api"
	"github.com/sma-monitor/dashboard/internal/backend"
	"github.com/sma-monitor/dashboard/internal/config"
	"github.com/sma-monitor/dashboard/internal/logging"
	"github.com/sma-monitor/dashboard/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sma-server",
	Short: "SMA project monitoring proxy",
	Long: `sma-server serves the SMA dashboard and forwards chat, upload and
analysis requests to the analysis backend.

Configuration comes from defaults, an optional YAML file (--config or
SMA_CONFIG), a .env file and the environment (PORT, FRONTEND_URL,
BACKEND_URL and SMA_* overrides).`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sma-server %s (built %s)\n", Version, BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to read .env: %v\n", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	endpoints, err := config.LoadEndpoints(cfg)
	if err != nil {
		return fmt.Errorf("failed to load endpoints: %w", err)
	}

	client := backend.NewClient(cfg.GetBackendURL(), cfg.Backend.Timeout,
		backend.WithChatTimeout(cfg.Backend.ChatTimeout))

	e := api.NewServer(&api.Dependencies{
		Backend:   client,
		Endpoints: endpoints,
		Config:    cfg,
		Logger:    logger,
		Version:   Version,
	})

	mode := "Embedded UI"
	staticFS, err := web.FileSystem(cfg.Server.StaticDir)
	if err != nil {
		logger.Warn("static files unavailable, serving API only", "dir", cfg.Server.StaticDir, "error", err)
		mode = "API only"
	} else {
		web.RegisterStaticRoutes(e, staticFS)
		if cfg.Server.StaticDir != "" {
			mode = "UI from " + cfg.Server.StaticDir
		}
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	printBanner(cfg, mode, len(endpoints))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.StartServer(s)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func printBanner(cfg *config.AppConfig, mode string, endpoints int) {
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           SMA Progress Monitoring Server                  ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Backend:   %-46s║\n", cfg.GetBackendURL())
	fmt.Printf("║  Frontend:  %-46s║\n", cfg.GetFrontendURL())
	fmt.Printf("║  Endpoints: %-46d║\n", endpoints)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
