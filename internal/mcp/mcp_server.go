// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the crtscope MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, store contract.GraphStore) *server.MCPServer {
	s := server.NewMCPServer(
		"Activity Scoring Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		store:   store,
	}

	// --- 1. Tool: get_component_activity ---
	s.AddTool(mcp.NewTool("get_component_activity",
		mcp.WithDescription("Compute the activity, dissatisfaction and CRT severity scores for one component, with per-source breakdown."),
		mcp.WithString("component", mcp.Description("Component identifier, e.g. 'payments' or 'comp:payments'."), mcp.Required()),
		mcp.WithString("window", mcp.Description("Rolling window (e.g. '7d', '36h'). Defaults to the configured window.")),
	), h.handleGetComponentActivity)

	// --- 2. Tool: get_dissatisfaction_leaderboard ---
	s.AddTool(mcp.NewTool("get_dissatisfaction_leaderboard",
		mcp.WithDescription("Rank all components by dissatisfaction score, severity breaking ties."),
		mcp.WithString("window", mcp.Description("Rolling window (e.g. '7d', '36h').")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of results returned.")),
	), h.handleGetLeaderboard)

	// --- 3. Tool: get_incident_candidates ---
	s.AddTool(mcp.NewTool("get_incident_candidates",
		mcp.WithDescription("List the most recent incident candidate snapshots with evidence and divergence."),
		mcp.WithNumber("limit", mcp.Description("Limit the number of snapshots returned.")),
	), h.handleGetIncidents)

	// --- 4. Tool: get_dependency_impact ---
	s.AddTool(mcp.NewTool("get_dependency_impact",
		mcp.WithDescription("Walk the dependency graph from a component and report the blast radius."),
		mcp.WithString("component", mcp.Description("Component identifier."), mcp.Required()),
		mcp.WithNumber("depth", mcp.Description("Maximum number of hops. Defaults to the configured depth.")),
	), h.handleGetImpact)

	return s
}

// StartMCPServer starts the crtscope MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, store contract.GraphStore) error {
	s := NewMCPServer(baseCfg, store)
	return server.ServeStdio(s)
}
