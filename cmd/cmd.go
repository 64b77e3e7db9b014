// Package cmd defines the command-line interface for crtscope.
package cmd

import (
	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(incidentsCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the incidents subcommands to the parent incidents command
	incidentsCmd.AddCommand(incidentsScanCmd)
	incidentsCmd.AddCommand(incidentsListCmd)

	// Add the graph subcommands to the parent graph command
	graphCmd.AddCommand(graphStatusCmd)
	graphCmd.AddCommand(graphApplyCmd)
	graphCmd.AddCommand(graphImpactCmd)
	graphCmd.AddCommand(graphMigrateCmd)

	// Add the export subcommands to the parent export command
	exportCmd.AddCommand(exportScoresCmd)
	exportCmd.AddCommand(exportSignalsCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().StringP("component", "c", "", "Component to score (bare name or comp: ID)")
	rootCmd.PersistentFlags().StringP("window", "w", contract.DefaultWindow, "Rolling window, e.g. 36h, 7d, 4w")
	rootCmd.PersistentFlags().IntP("top", "l", contract.DefaultResultLimit, "Number of results to display")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Bool("explain", false, "Print per-source contribution breakdown")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("graph-backend", string(schema.SQLiteBackend), "Graph backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("graph-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("cursor-dir", "", "Directory holding per-source ingest cursors")
	rootCmd.PersistentFlags().Int("max-depth", schema.DefaultImpactMaxDepth, "Maximum hops for dependency impact walks")
	rootCmd.PersistentFlags().Int("evidence", contract.DefaultEvidencePerSource, "Evidence items kept per source on incident candidates")
	rootCmd.PersistentFlags().String("embed-url", "", "Optional embedding service URL for drift detection")
	rootCmd.PersistentFlags().String("embed-timeout", "", "Timeout per embedding call, e.g. 10s")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("api-addr", ":8787", "Listen address for the query API")
	serveCmd.Flags().String("redis-addr", "", "Redis address for leaderboard caching (empty disables caching)")
	serveCmd.Flags().String("cache-ttl", "", "TTL for cached leaderboards, e.g. 5m")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all flags of scheduleCmd to Viper
	scheduleCmd.Flags().String("cron", "", "Cron spec with seconds for periodic incident scans (default every 30 minutes)")
	if err := viper.BindPFlags(scheduleCmd.Flags()); err != nil {
		contract.LogFatal("Error binding schedule flags", err)
	}

	// Bind all flags of graphMigrateCmd to Viper
	graphMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(graphMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding graph migrate flags", err)
	}
}
