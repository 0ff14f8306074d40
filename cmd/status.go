package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Lumos-Labs-HQ/ledgerflow/internal/entity"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show row counts of the target tables",
	Long: `Show how many rows each target table currently holds. Useful as a quick
check that runs are landing data where expected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		registry, err := entity.NewDefaultRegistry()
		if err != nil {
			return fmt.Errorf("failed to build entity registry: %w", err)
		}
		descs, err := registry.Ordered()
		if err != nil {
			return err
		}

		ctx := context.Background()
		pg, err := connectStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer pg.Close()

		color.New(color.FgCyan, color.Bold).Println("Loaded rows")
		for _, d := range descs {
			n, err := pg.Count(ctx, d.TableName)
			if err != nil {
				return err
			}
			fmt.Printf("  %-14s %d\n", d.TableName, n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
