package cmd

import (
	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd starts the Model Context Protocol server over stdio.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI assistant integrations.",
	Long: `Expose scoring, incident and impact operations as MCP tools over stdio
so AI assistants can query component health directly.

Tools:
  get_component_activity          Score one component with breakdown
  get_dissatisfaction_leaderboard Rank components by dissatisfaction
  get_incident_candidates         List recent incident snapshots
  get_dependency_impact           Walk a component's blast radius`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := mcp.StartMCPServer(rootCtx, cfg, store); err != nil {
			contract.LogFatal("MCP server failed", err)
		}
	},
}
