package cmd

import (
	"time"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/spf13/cobra"
)

// incidentsCmd is the parent for incident candidate operations.
var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "Scan for and list incident candidate snapshots.",
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// incidentsScanCmd runs a scan and persists candidates as snapshots.
var incidentsScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan all components and persist incident candidates.",
	Long: `Score every component and promote those that cross both the CRT
severity and dissatisfaction thresholds into immutable incident candidate
snapshots, enriched with evidence, divergence and knowledge gaps.

Snapshots are append-only. Re-running a scan records new snapshots and
never rewrites history.

Examples:
  # Scan with the configured thresholds
  crtscope incidents scan

  # Scan a wider window and emit the candidates as JSON
  crtscope incidents scan --window 4w --output json`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		start := time.Now()
		candidates, err := newPipeline().RunIncidentScan(rootCtx)
		if err != nil {
			contract.LogFatal("Cannot run incident scan", err)
		}
		if err := writer.WriteIncidents(candidates, cfg, time.Since(start)); err != nil {
			contract.LogFatal("Cannot write incident output", err)
		}
	},
}

// incidentsListCmd lists previously persisted snapshots.
var incidentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent incident candidate snapshots.",
	Long: `List incident candidate snapshots recorded by previous scans,
newest first. Use --top to control how many are shown.`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		start := time.Now()
		candidates, err := store.ListCandidates(rootCtx, cfg.ResultLimit)
		if err != nil {
			contract.LogFatal("Cannot list incident candidates", err)
		}
		if err := writer.WriteIncidents(candidates, cfg, time.Since(start)); err != nil {
			contract.LogFatal("Cannot write incident output", err)
		}
	},
}
