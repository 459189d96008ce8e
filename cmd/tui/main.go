package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sma-monitor/dashboard/internal/client"
	"github.com/sma-monitor/dashboard/internal/history"
	"github.com/sma-monitor/dashboard/internal/logging"
	"github.com/sma-monitor/dashboard/internal/state"
	"github.com/sma-monitor/dashboard/internal/tui"
)

var (
	serverURL   string
	historyPath string
	saveDir     string
	logFile     string
)

var rootCmd = &cobra.Command{
	Use:   "sma-tui",
	Short: "Terminal client for the SMA project monitoring proxy",
	Long: `sma-tui talks to a running sma-server. It offers the chat assistant,
the project dashboard, the analysis actions and spreadsheet upload.

Keyboard:
  tab/shift+tab  switch view
  enter          send message / run action / upload path
  ctrl+r         refresh dashboard
  ctrl+x         clear the current file
  ctrl+s         save the current file
  esc            dismiss notification
  ctrl+c         quit`,
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	rootCmd.Flags().StringVar(&serverURL, "server", "http://localhost:3000", "proxy base URL")
	rootCmd.Flags().StringVar(&historyPath, "history", "", "upload history file (default ~/.sma/"+history.FileName+")")
	rootCmd.Flags().StringVar(&saveDir, "save-dir", ".", "directory ctrl+s saves the current file into")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "write debug logs to this file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	logger := logging.NewNoop()
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logger = logging.New(logging.Config{Level: "debug", Output: f})
	}

	if historyPath == "" {
		p, err := history.DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to resolve history path: %w", err)
		}
		historyPath = p
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	api := client.New(serverURL)
	title := tui.DefaultTitle
	cfgCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if cfg, err := api.Config(cfgCtx); err == nil && cfg.AppTitle != "" {
		title = cfg.AppTitle
	} else if err != nil {
		logger.Warn("could not fetch proxy config", "server", serverURL, "error", err)
	}
	cancel()

	ctrl := state.NewController(state.NewStore(), api, history.NewFileStore(historyPath),
		state.WithLogger(logger))

	p := tea.NewProgram(
		tui.New(ctx, ctrl, tui.Options{Title: title, SaveDir: saveDir}),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running tui: %w", err)
	}
	return nil
}
