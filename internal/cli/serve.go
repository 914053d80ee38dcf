package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when enabled, the seed worker",
		RunE:  runServe,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	l := setupLogger(os.Stdout)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, a, deps, err := openApp(ctx, l)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			slog.Warn("failed to close dependencies", "error", err)
		}
	}()

	if cfg.EnableSeedWorker {
		consumer, err := a.StartWorker(cfg)
		if err != nil {
			return fmt.Errorf("start seed worker: %w", err)
		}
		defer consumer.Stop()
	}

	if !cfg.EnableAPI {
		slog.Info("API disabled, running worker only")
		<-ctx.Done()
		return nil
	}
	return a.Run(ctx)
}
