package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-graph/internal/core/domain"
)

var failuresCmd = &cobra.Command{
	Use:   "failures [run-id]",
	Short: "List items that failed in a crawl run",
	Long: `Lists the failure log of a crawl run. Without a run ID the most recent
run is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFailures,
}

func init() {
	rootCmd.AddCommand(failuresCmd)
}

func runFailures(cmd *cobra.Command, args []string) error {
	if deps.OpenHistory == nil {
		return errors.New("run history not configured")
	}

	ctx := cmd.Context()
	runs, closeFn, err := deps.OpenHistory(ctx)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	if closeFn != nil {
		defer closeFn()
	}

	var runID string
	if len(args) > 0 {
		runID = args[0]
	} else {
		last, err := runs.LastRun(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			cmd.Println("No crawl runs recorded.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("getting last run: %w", err)
		}
		runID = last.ID
	}

	failures, err := runs.Failures(ctx, runID)
	if err != nil {
		return fmt.Errorf("listing failures: %w", err)
	}
	if len(failures) == 0 {
		cmd.Printf("No failures recorded for run %s.\n", runID)
		return nil
	}

	cmd.Printf("Failures for run %s (%d):\n", runID, len(failures))
	for _, f := range failures {
		cmd.Printf("  [%s] %s", f.Kind, f.Label)
		if f.Message != "" {
			cmd.Printf(": %s", f.Message)
		}
		cmd.Println()
	}
	return nil
}
