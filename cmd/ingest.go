package cmd

import (
	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/internal/cursor"
	"github.com/crtscope/crtscope/internal/ingest"
	"github.com/spf13/cobra"
)

// ingestCmd loads raw events into the graph store.
var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest raw signal events from JSON or NDJSON files.",
	Long: `Normalize raw events from Git, Slack, support and doc sources and merge
them into the graph store as idempotent signal upserts.

Each file may be a JSON array or newline-delimited JSON. Per-source cursors
track the last processed timestamp per stream (channel, repo, doc path), so
re-running ingestion only picks up new events. Malformed events are skipped
with a warning, never aborting the batch.

Examples:
  # Ingest a Slack export and a Git webhook dump
  crtscope ingest slack_events.ndjson git_events.json

  # Ingest with cursors kept next to the data
  crtscope ingest events.ndjson --cursor-dir ./cursors`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, args []string) {
		cursors, err := cursor.NewFileStore(cfg.CursorDir)
		if err != nil {
			contract.LogFatal("Cannot open cursor store", err)
		}

		ingestor := ingest.NewIngestor(store, cursors)
		var total ingest.Report
		for _, path := range args {
			report, err := ingestor.IngestFile(rootCtx, path)
			if err != nil {
				contract.LogFatal("Cannot ingest events", err)
			}
			total.Processed += report.Processed
			total.Skipped += report.Skipped
			total.Malformed += report.Malformed
		}

		cmd.Printf("✅ Ingested %d event(s) from %d file(s)\n", total.Processed, len(args))
		if total.Skipped > 0 {
			cmd.Printf("⏭️  Skipped %d event(s) already behind a cursor\n", total.Skipped)
		}
		if total.Malformed > 0 {
			cmd.Printf("⚠️  Dropped %d malformed event(s)\n", total.Malformed)
		}
	},
}
