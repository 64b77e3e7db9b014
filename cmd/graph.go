package cmd

import (
	"errors"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/internal/graphstore"
	"github.com/crtscope/crtscope/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// graphCmd is the parent for graph store operations.
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect and manage the dependency graph store.",
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// graphStatusCmd shows connectivity and volume information.
var graphStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show graph store connectivity and signal volume.",
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := store.Status(rootCtx)
		if err != nil {
			contract.LogFatal("Cannot read graph status", err)
		}
		if err := writer.WriteStatus(status, cfg); err != nil {
			contract.LogFatal("Cannot write status output", err)
		}
	},
}

// graphApplyCmd seeds the graph from a declarative topology file.
var graphApplyCmd = &cobra.Command{
	Use:   "apply [topology-file]",
	Short: "Apply a declarative topology YAML to the graph store.",
	Long: `Load a topology YAML describing components, nodes and edges, validate
it, and merge it into the graph store.

Applying the same file twice is a no-op thanks to merge-by-ID semantics, so
topology files can live in version control and be re-applied on every deploy.

Example topology:
  components:
    - id: payments
      name: Payments
      team: payments-team
  nodes:
    - id: doc:payments-runbook
      name: Payments runbook
  edges:
    - {from: payments, to: doc:payments-runbook, kind: documented_by}`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, args []string) {
		topo, err := graphstore.LoadTopology(args[0])
		if err != nil {
			contract.LogFatal("Cannot load topology", err)
		}
		if err := topo.Apply(rootCtx, store); err != nil {
			contract.LogFatal("Cannot apply topology", err)
		}
		cmd.Printf("✅ Applied %d component(s), %d node(s), %d edge(s)\n",
			len(topo.Components), len(topo.Nodes), len(topo.Edges))
	},
}

// graphImpactCmd walks the blast radius of a component.
var graphImpactCmd = &cobra.Command{
	Use:   "impact [component]",
	Short: "Show the dependency blast radius of a component.",
	Long: `Walk outgoing edges from a component breadth-first and report every
component, doc, service and API reachable within --max-depth hops.

A store failure mid-walk degrades the result to partial instead of failing,
so you always see what could be reached.

Examples:
  # Who is affected if payments degrades?
  crtscope graph impact payments

  # Walk deeper
  crtscope graph impact payments --max-depth 4`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		componentID := cfg.ComponentID
		if len(args) == 1 {
			componentID = schema.ComponentID(args[0])
		}
		if componentID == "" {
			contract.LogFatal("Cannot walk impact", errors.New("a component is required (positional argument or --component)"))
		}

		impact := newPipeline().WalkImpact(rootCtx, componentID, cfg.ImpactMaxDepth)
		if err := writer.WriteImpact(impact, cfg); err != nil {
			contract.LogFatal("Cannot write impact output", err)
		}
	},
}

// graphMigrateCmd manages graph store schema migrations.
var graphMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run graph store schema migrations.",
	Long: `Apply versioned schema migrations to the graph store.

By default migrates to the latest version. Use --target-version to move to
a specific version, or 0 to roll back to the initial state.`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := graphstore.Migrate(cfg.GraphBackend, cfg.GraphDBConnect, targetVersion); err != nil {
			contract.LogFatal("Cannot migrate graph store", err)
		}
		cmd.Println("✅ Graph store migrations complete")
	},
}
