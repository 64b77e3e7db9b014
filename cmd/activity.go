package cmd

import (
	"errors"
	"time"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
	"github.com/spf13/cobra"
)

// activityCmd scores one component.
var activityCmd = &cobra.Command{
	Use:   "activity [component]",
	Short: "Score one component's activity, dissatisfaction and CRT severity.",
	Long: `Compute the normalized activity, dissatisfaction and CRT severity scores
for a single component over the rolling window.

Signals decay exponentially with per-source half-lives, so a burst of
complaints yesterday outweighs a steady hum from last month. Use --explain
to see exactly which sources drove each score.

Examples:
  # Score the payments component over the default 7 day window
  crtscope activity payments

  # Widen the window and show the per-source breakdown
  crtscope activity payments --window 4w --explain

  # Export the result for tracking
  crtscope activity payments --output csv --output-file payments.csv`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		componentID := cfg.ComponentID
		if len(args) == 1 {
			componentID = schema.ComponentID(args[0])
		}
		if componentID == "" {
			contract.LogFatal("Cannot score activity", errors.New("a component is required (positional argument or --component)"))
		}

		start := time.Now()
		result, err := newPipeline().ScoreComponent(rootCtx, componentID)
		if err != nil {
			contract.LogFatal("Cannot score component", err)
		}

		if cfg.Output == schema.ParquetOut {
			if err := writeScoresParquet([]schema.ScoreResult{result}, cfg.OutputFile); err != nil {
				contract.LogFatal("Cannot write parquet output", err)
			}
			return
		}
		if err := writer.WriteActivity(result, cfg, time.Since(start)); err != nil {
			contract.LogFatal("Cannot write activity output", err)
		}
	},
}
