// Package cli implements the ragseed commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ragseed/internal/app"
	"ragseed/internal/config"
	"ragseed/internal/logger"
)

var logLevel string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "ragseed",
	Short:         "Seed documents and web pages into a vector store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogger installs the default JSON logger writing to w.
func setupLogger(w io.Writer) *slog.Logger {
	l := logger.New(w, logLevel)
	slog.SetDefault(l)
	return l
}

// openApp loads the configuration and wires the application. The caller
// closes the returned dependencies.
func openApp(ctx context.Context, l *slog.Logger) (*config.Config, *app.App, *app.Dependencies, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("bootstrap: %w", err)
	}
	a, err := app.New(cfg, deps, l)
	if err != nil {
		deps.Close()
		return nil, nil, nil, err
	}
	return cfg, a, deps, nil
}
