package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print a page of seed logs, newest first",
		RunE:  runLogs,
	}
	cmd.Flags().IntP("page", "p", 1, "Page number")
	RootCmd.AddCommand(cmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	page, _ := cmd.Flags().GetInt("page")
	l := setupLogger(os.Stderr)
	ctx := cmd.Context()

	_, a, deps, err := openApp(ctx, l)
	if err != nil {
		return err
	}
	defer deps.Close()

	result, err := a.SeedLogs.Page(ctx, page)
	if err != nil {
		return fmt.Errorf("list seed logs: %w", err)
	}

	b, _ := json.MarshalIndent(result, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
