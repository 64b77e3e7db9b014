package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/internal/parquet"
	"github.com/crtscope/crtscope/schema"
	"github.com/spf13/cobra"
)

// exportCmd is the parent for Parquet export operations.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export scores and signals to Parquet files.",
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// exportScoresCmd exports the full leaderboard as Parquet.
var exportScoresCmd = &cobra.Command{
	Use:   "scores [file.parquet]",
	Short: "Export the scored leaderboard to a Parquet file.",
	Long: `Score every component and write the ranked results to a Parquet file
for analytics pipelines (DuckDB, Spark, pandas).

Examples:
  # Export this week's scores
  crtscope export scores scores.parquet

  # Export a monthly snapshot
  crtscope export scores monthly.parquet --window 4w --top 1000`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		results, err := newPipeline().Leaderboard(rootCtx)
		if err != nil {
			contract.LogFatal("Cannot compute scores", err)
		}
		if err := writeScoresParquet(results, args[0]); err != nil {
			contract.LogFatal("Cannot export scores", err)
		}
	},
}

// exportSignalsCmd exports one component's raw signals as Parquet.
var exportSignalsCmd = &cobra.Command{
	Use:   "signals [component] [file.parquet]",
	Short: "Export a component's signals in the window to a Parquet file.",
	Long: `Write every signal linked to a component within the rolling window to
a Parquet file, one row per signal with source, kind, weight and actor.

Examples:
  # Dump payments signals for offline analysis
  crtscope export signals payments payments_signals.parquet`,
	Args:    cobra.ExactArgs(2),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		signals, err := newPipeline().SignalsInWindow(rootCtx, schema.ComponentID(args[0]), "")
		if err != nil {
			contract.LogFatal("Cannot read signals", err)
		}

		rows := parquet.ConvertSignals(signals)
		if err := parquet.WriteSignalsParquet(rows, args[1]); err != nil {
			contract.LogFatal("Cannot export signals", err)
		}
		fmt.Fprintf(os.Stderr, "💾 Wrote %d signal row(s) to %s\n", len(rows), args[1])
	},
}

// writeScoresParquet converts score results and writes them to a Parquet
// file. Shared by the export subcommand and the --output parquet paths.
func writeScoresParquet(results []schema.ScoreResult, outputPath string) error {
	if outputPath == "" {
		return errors.New("parquet output requires --output-file")
	}
	rows := parquet.ConvertScoreResults(results)
	if err := parquet.WriteScoresParquet(rows, outputPath); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "💾 Wrote %d score row(s) to %s\n", len(rows), outputPath)
	return nil
}
