package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"ragseed/internal/seed"
)

func init() {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed pending sources, or the given ones, and print progress as JSON lines",
		RunE:  runSeed,
	}
	cmd.Flags().StringSlice("id", nil, "Source id to seed (repeatable); default is every pending source")
	RootCmd.AddCommand(cmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ids, _ := cmd.Flags().GetStringSlice("id")
	l := setupLogger(os.Stderr)
	ctx := cmd.Context()

	_, a, deps, err := openApp(ctx, l)
	if err != nil {
		return err
	}
	defer deps.Close()

	sources, err := a.SourceService.Select(ctx, ids)
	if err != nil {
		return fmt.Errorf("select sources: %w", err)
	}
	if len(sources) == 0 {
		return seed.ErrNoSources
	}

	outcomes := a.Coordinator.Run(ctx, sources, newJSONLinesSink(cmd.OutOrStdout()))
	if failed := countFailed(outcomes); failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(outcomes))
	}
	return nil
}

// jsonLinesSink writes one JSON object per event.
type jsonLinesSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newJSONLinesSink(w io.Writer) *jsonLinesSink {
	return &jsonLinesSink{enc: json.NewEncoder(w)}
}

func (s *jsonLinesSink) Send(ev seed.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(ev); err != nil {
		slog.Warn("failed to write progress event", "error", err)
	}
}

func countFailed(outcomes []seed.Outcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.OK {
			n++
		}
	}
	return n
}
