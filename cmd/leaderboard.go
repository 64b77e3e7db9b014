package cmd

import (
	"time"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
	"github.com/spf13/cobra"
)

// leaderboardCmd ranks all components by dissatisfaction.
var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Rank all components by dissatisfaction score.",
	Long: `Score every registered component concurrently and rank them by
dissatisfaction, with CRT severity breaking ties.

Components whose store reads fail are skipped with a warning rather than
failing the whole run, so one bad component never hides the rest.

Examples:
  # Show the 10 most dissatisfied components
  crtscope leaderboard --top 10

  # Rank over a longer window with the dominant sources shown
  crtscope leaderboard --window 4w --explain

  # Export the full ranking to CSV
  crtscope leaderboard --output csv --output-file ranking.csv`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		start := time.Now()
		results, err := newPipeline().Leaderboard(rootCtx)
		if err != nil {
			contract.LogFatal("Cannot compute leaderboard", err)
		}

		if cfg.Output == schema.ParquetOut {
			if err := writeScoresParquet(results, cfg.OutputFile); err != nil {
				contract.LogFatal("Cannot write parquet output", err)
			}
			return
		}
		if err := writer.WriteLeaderboard(results, cfg, time.Since(start)); err != nil {
			contract.LogFatal("Cannot write leaderboard output", err)
		}
	},
}
