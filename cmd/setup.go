package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Lumos-Labs-HQ/ledgerflow/internal/entity"
)

// setupCmd represents the setup command
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the target tables",
	Long: `Create the target tables for every registered entity, parents first so
foreign keys resolve. Existing tables are left untouched.`,
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

		if err := pg.Setup(ctx, descs); err != nil {
			return err
		}
		color.Green("✓ Tables ready")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
