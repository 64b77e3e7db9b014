package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/crtscope/crtscope/core"
	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	store   contract.GraphStore
}

// configFor clones the base config and applies the optional window override.
func (h *toolHandler) configFor(request mcp.CallToolRequest) (*contract.Config, error) {
	cfg := h.baseCfg.Clone()
	if windowStr := request.GetString("window", ""); windowStr != "" {
		window, err := contract.ParseWindowDuration(windowStr)
		if err != nil {
			return nil, fmt.Errorf("invalid window: %w", err)
		}
		cfg.Window = window
	}
	return cfg, nil
}

func (h *toolHandler) handleGetComponentActivity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	component := request.GetString("component", "")
	if component == "" {
		return mcp.NewToolResultError("component is required"), nil
	}

	cfg, err := h.configFor(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	pipeline := core.NewPipeline(h.store, cfg)
	result, err := pipeline.ScoreComponent(ctx, schema.ComponentID(component))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scoring failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetLeaderboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.configFor(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if l := request.GetInt("limit", 0); l > 0 {
		cfg.ResultLimit = l
	}

	pipeline := core.NewPipeline(h.store, cfg)
	results, err := pipeline.Leaderboard(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("leaderboard failed: %v", err)), nil
	}

	views := make([]schema.ActivityView, len(results))
	for i, r := range results {
		views[i] = schema.NewActivityView(r)
	}
	jsonData, _ := json.MarshalIndent(views, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetIncidents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := h.baseCfg.ResultLimit
	if l := request.GetInt("limit", 0); l > 0 {
		limit = l
	}

	candidates, err := h.store.ListCandidates(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing candidates failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(candidates, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleGetImpact(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	component := request.GetString("component", "")
	if component == "" {
		return mcp.NewToolResultError("component is required"), nil
	}

	cfg := h.baseCfg.Clone()
	depth := request.GetInt("depth", cfg.ImpactMaxDepth)

	pipeline := core.NewPipeline(h.store, cfg)
	impact := pipeline.WalkImpact(ctx, schema.ComponentID(component), depth)

	jsonData, _ := json.MarshalIndent(impact, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
