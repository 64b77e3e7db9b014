package cmd

import (
	"fmt"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/internal/httpapi"
	"github.com/crtscope/crtscope/internal/scorecache"
	"github.com/spf13/cobra"
)

// serveCmd runs the HTTP query API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP query API for scores, incidents and impact.",
	Long: `Start the HTTP API exposing component activity, the dissatisfaction
leaderboard, incident candidates and dependency impact.

When --redis-addr is set, leaderboard responses are cached in Redis with
--cache-ttl. A cache failure is never fatal; the API recomputes and keeps
serving.

Endpoints:
  GET /healthz
  GET /api/v1/components/{id}/activity
  GET /api/v1/components/{id}/impact
  GET /api/v1/leaderboard
  GET /api/v1/incidents

Examples:
  # Serve on the default port
  crtscope serve

  # Serve with Redis-backed leaderboard caching
  crtscope serve --api-addr :9090 --redis-addr localhost:6379 --cache-ttl 10m`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		var cache contract.ScoreCache
		if cfg.RedisAddr != "" {
			rc, err := scorecache.New(rootCtx, cfg.RedisAddr)
			if err != nil {
				contract.LogWarn("Redis unavailable, serving without cache", err)
			} else {
				cache = rc
				defer func() { _ = rc.Close() }()
			}
		}

		srv := httpapi.NewServer(store, cfg, cache)
		contract.LogInfo(fmt.Sprintf("query API listening on %s", cfg.APIAddr))
		if err := srv.Run(); err != nil {
			contract.LogFatal("Query API failed", err)
		}
	},
}
