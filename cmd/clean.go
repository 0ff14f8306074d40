package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Lumos-Labs-HQ/ledgerflow/internal/entity"
)

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Empty the target tables",
	Long: `Empty the target tables, children before parents so foreign keys never
dangle. Asks for confirmation unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		force, _ := cmd.Flags().GetBool("force")
		if !force {
			color.Yellow("⚠ This deletes every loaded row.")
			fmt.Print("Continue? (y/N): ")
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(answer)) != "y" {
				fmt.Println("Aborted.")
				return nil
			}
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

		if err := pg.Truncate(ctx, descs); err != nil {
			return err
		}
		color.Green("✓ Tables emptied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
