package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/internal/sched"
	"github.com/spf13/cobra"
)

// scheduleCmd runs periodic incident scans in the foreground.
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run periodic incident scans on a cron schedule.",
	Long: `Run incident scans on a cron schedule (with seconds precision) until
interrupted. Each scan persists incident candidate snapshots; a failing
scan is logged and never stops the schedule.

Examples:
  # Scan every 30 minutes (the default)
  crtscope schedule

  # Scan hourly with a wider window
  crtscope schedule --cron "0 0 * * * *" --window 4w`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		scheduler := sched.New(newPipeline(), cfg.CronSpec)
		if err := scheduler.Start(rootCtx); err != nil {
			contract.LogFatal("Cannot start scheduler", err)
		}

		// Block until interrupted, then let the running scan finish.
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		scheduler.Stop()
		contract.LogInfo("scheduler stopped")
	},
}
