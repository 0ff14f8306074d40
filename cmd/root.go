package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	Version = "1.3.0"
)

var rootCmd = &cobra.Command{
	Use:   "ledgerflow",
	Short: "Batch pipeline loading trading accounts and transactions into PostgreSQL",
	Long: `LedgerFlow moves daily CSV exports of trading accounts and their
transactions from object storage into PostgreSQL.

Each run downloads the source objects, validates every batch against the
entity rules (required fields, enums, cross-field arithmetic, referential
integrity), coerces values to their storage types and upserts them. A batch
with any bad row is rejected whole; reloading the same export is a no-op.`,

	Run: func(cmd *cobra.Command, args []string) {
		showVersion, _ := cmd.Flags().GetBool("version")
		if showVersion {
			fmt.Printf("LedgerFlow version %s\n", Version)
			os.Exit(0)
		}
		color.New(color.FgCyan, color.Bold).Println("LedgerFlow")
		fmt.Println()
		cmd.Help()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ledgerflow.config.json)")
	rootCmd.PersistentFlags().BoolP("force", "f", false, "Skip confirmations")

	rootCmd.Flags().BoolP("version", "v", false, "Show CLI version")
}

func initConfig() {
	if err := godotenv.Load(); err != nil {
		godotenv.Load(".env")
		godotenv.Load(".env.local")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("json")
		viper.SetConfigName("ledgerflow.config")
	}

	viper.AutomaticEnv()

	viper.ReadInConfig()
}
