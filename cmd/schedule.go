package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Lumos-Labs-HQ/ledgerflow/internal/scheduler"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on a fixed interval",
	Long: `Run the pipeline repeatedly on the configured interval until interrupted.
Runs never overlap and a failed run does not stop the schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		interval, err := cfg.ScheduleInterval()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pg, err := connectStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer pg.Close()

		o, err := buildOrchestrator(ctx, cfg, pg, log)
		if err != nil {
			return err
		}

		color.Cyan("Scheduling a run every %s (Ctrl+C to stop)", interval)
		s := scheduler.New(interval, cfg.Schedule.RunOnStart, log)
		err = s.Start(ctx, func(ctx context.Context) error {
			result, err := o.Run(ctx)
			if err != nil {
				return err
			}
			if !result.Success {
				return errors.New(result.ErrorMessage)
			}
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
