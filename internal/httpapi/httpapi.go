// Package httpapi serves the read-only query API over the scoring pipeline.
// It never triggers ingestion or incident scans; those stay on the CLI and
// scheduler paths.
package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/crtscope/crtscope/core"
	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
)

// Server holds the dependencies of the query API.
type Server struct {
	store contract.GraphStore
	cfg   *contract.Config
	cache contract.ScoreCache // optional, nil disables caching
}

// NewServer returns a Server. The cache may be nil.
func NewServer(store contract.GraphStore, cfg *contract.Config, cache contract.ScoreCache) *Server {
	return &Server{store: store, cfg: cfg, cache: cache}
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	r.GET("/healthz", s.health)

	api := r.Group("/api/v1")
	api.GET("/components/:id/activity", s.componentActivity)
	api.GET("/components/:id/impact", s.componentImpact)
	api.GET("/leaderboard", s.leaderboard)
	api.GET("/incidents", s.incidents)

	return r
}

// Run serves the API on the configured address until the listener fails.
func (s *Server) Run() error {
	addr := s.cfg.APIAddr
	contract.LogInfo(fmt.Sprintf("query API listening on %s", addr))
	return s.Router().Run(addr)
}

// pipelineFor builds a pipeline honoring an optional per-request window
// override. The validated base config is cloned, never mutated.
func (s *Server) pipelineFor(c *gin.Context) (*core.Pipeline, *contract.Config, error) {
	cfg := s.cfg
	if windowStr := c.Query("window"); windowStr != "" {
		window, err := contract.ParseWindowDuration(windowStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid window: %w", err)
		}
		cfg = s.cfg.Clone()
		cfg.Window = window
	}
	return core.NewPipeline(s.store, cfg), cfg, nil
}

func (s *Server) health(c *gin.Context) {
	status, err := s.store.Status(c.Request.Context())
	if err != nil || !status.Connected {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "status": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": status})
}

// componentActivity serves the flattened activity view for one component.
// A component with no signals in the window is still a 200 with the
// no_signals flag set; only an unknown component is a 404.
func (s *Server) componentActivity(c *gin.Context) {
	pipeline, _, err := s.pipelineFor(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	componentID := schema.ComponentID(c.Param("id"))
	result, err := pipeline.ScoreComponent(c.Request.Context(), componentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": fmt.Sprintf("unknown component %s", componentID)})
		return
	}

	if c.Query("explain") == "true" {
		c.JSON(http.StatusOK, gin.H{"ok": true, "result": result})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "activity": schema.NewActivityView(result)})
}

func (s *Server) componentImpact(c *gin.Context) {
	pipeline, cfg, err := s.pipelineFor(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	depth := cfg.ImpactMaxDepth
	if depthStr := c.Query("depth"); depthStr != "" {
		if _, err := fmt.Sscanf(depthStr, "%d", &depth); err != nil || depth <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid depth"})
			return
		}
	}

	componentID := schema.ComponentID(c.Param("id"))
	impact := pipeline.WalkImpact(c.Request.Context(), componentID, depth)
	c.JSON(http.StatusOK, gin.H{"ok": true, "impact": impact})
}

// leaderboard serves the ranked dissatisfaction leaderboard, cached per
// window when a cache is configured.
func (s *Server) leaderboard(c *gin.Context) {
	pipeline, cfg, err := s.pipelineFor(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	cacheKey := fmt.Sprintf("leaderboard:%s:%d", time.Duration(cfg.Window), cfg.ResultLimit)
	if s.cache != nil {
		if results, ok := s.cache.GetLeaderboard(c.Request.Context(), cacheKey); ok {
			c.JSON(http.StatusOK, gin.H{"ok": true, "cached": true, "results": rankedViews(results)})
			return
		}
	}

	results, err := pipeline.Leaderboard(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if s.cache != nil {
		if err := s.cache.SetLeaderboard(c.Request.Context(), cacheKey, results, cfg.CacheTTL); err != nil {
			contract.LogWarn("leaderboard cache write failed", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "cached": false, "results": rankedViews(results)})
}

func (s *Server) incidents(c *gin.Context) {
	limit := s.cfg.ResultLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if _, err := fmt.Sscanf(limitStr, "%d", &limit); err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid limit"})
			return
		}
	}

	candidates, err := s.store.ListCandidates(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "incidents": candidates})
}

// rankedView is one leaderboard entry with its rank attached.
type rankedView struct {
	Rank int `json:"rank"`
	schema.ActivityView
}

func rankedViews(results []schema.ScoreResult) []rankedView {
	views := make([]rankedView, len(results))
	for i, r := range results {
		views[i] = rankedView{Rank: i + 1, ActivityView: schema.NewActivityView(r)}
	}
	return views
}
