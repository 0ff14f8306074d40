package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Lumos-Labs-HQ/ledgerflow/internal/pipeline"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one pipeline run",
	Long: `Execute one full pipeline run: download the configured source objects,
validate each entity's batch, coerce values to their storage types and
upsert them in dependency order (accounts before transactions).

A batch with any invalid row is rejected whole and every entity downstream
of it is skipped. The command exits non-zero when the run fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()
		pg, err := connectStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer pg.Close()

		o, err := buildOrchestrator(ctx, cfg, pg, log)
		if err != nil {
			return err
		}

		result, err := o.Run(ctx)
		printRunResult(result)
		if err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("pipeline run %s failed: %s", result.RunID, result.ErrorMessage)
		}
		return nil
	},
}

func printRunResult(result pipeline.RunResult) {
	fmt.Println()
	if result.Success {
		color.Green("✓ Run %s completed in %s", result.RunID, result.CompletedAt.Sub(result.StartedAt).Round(time.Millisecond))
	} else {
		color.Red("✗ Run %s failed: %s", result.RunID, result.ErrorMessage)
	}
	for _, step := range result.Steps {
		switch {
		case step.Skipped:
			color.Yellow("  - %-12s skipped (%s)", step.Entity, step.ErrorMessage)
		case step.State == pipeline.StateDone:
			fmt.Printf("  - %-12s %d rows (%d updated, %d inserted)\n",
				step.Entity, step.RowsLoaded, step.UpdatedRows, step.InsertedRows)
		default:
			color.Red("  - %-12s %s: %s", step.Entity, step.State, step.ErrorMessage)
		}
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
