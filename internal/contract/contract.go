// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/crtscope/crtscope/schema"
)

// GraphStore defines the persistence operations the engine needs from the
// graph collaborator. All writes are idempotent upserts (merge-by-ID) so
// concurrent ingestion jobs from different sources never produce duplicate
// nodes or edges. The interface allows the core logic to be tested without a
// live database.
type GraphStore interface {
	// --- Node / edge upserts ---

	// UpsertComponent merges a component node by ID.
	UpsertComponent(ctx context.Context, c schema.Component) error

	// UpsertNode merges an arbitrary graph node by ID.
	UpsertNode(ctx context.Context, n schema.GraphNode) error

	// UpsertEdge merges a directed edge by (from, to, kind).
	UpsertEdge(ctx context.Context, e schema.GraphEdge) error

	// UpsertSignal merges a normalized signal by ID and links it to its
	// components. Re-ingesting the same signal overwrites, never duplicates.
	UpsertSignal(ctx context.Context, s schema.ActivitySignal) error

	// --- Reads ---

	// GetComponent returns the component node for a comp: ID.
	GetComponent(ctx context.Context, componentID string) (schema.Component, error)

	// ListComponents returns all component nodes.
	ListComponents(ctx context.Context) ([]schema.Component, error)

	// SignalsForComponent returns all signals linked to a component with
	// timestamp >= since, for one optional source ("" means all sources).
	SignalsForComponent(ctx context.Context, componentID string, source schema.Source, since time.Time) ([]schema.ActivitySignal, error)

	// Neighborhood returns the entities directly attached to a component.
	Neighborhood(ctx context.Context, componentID string) (schema.Neighborhood, error)

	// APIImpact returns the entities reachable from an API endpoint.
	APIImpact(ctx context.Context, apiID string) (schema.APIImpact, error)

	// EdgesFrom returns all outgoing edges of a node, for BFS traversal.
	EdgesFrom(ctx context.Context, nodeID string) ([]schema.GraphEdge, error)

	// GetNode returns a node by ID.
	GetNode(ctx context.Context, nodeID string) (schema.GraphNode, error)

	// --- Run tracking / snapshots ---

	// BeginRun records the start of a scoring run and returns its ID.
	BeginRun(ctx context.Context, start time.Time, params map[string]any) (int64, error)

	// EndRun records the completion of a scoring run.
	EndRun(ctx context.Context, runID int64, end time.Time, components int) error

	// SaveCandidate appends an immutable incident candidate snapshot.
	// Snapshots are never updated or deleted by the engine.
	SaveCandidate(ctx context.Context, c schema.IncidentCandidate) error

	// ListCandidates returns the most recent candidate snapshots.
	ListCandidates(ctx context.Context, limit int) ([]schema.IncidentCandidate, error)

	// Status returns connectivity and volume information.
	Status(ctx context.Context) (schema.GraphStatus, error)

	// Close closes the underlying connection.
	Close() error
}

// Embedder produces a vector representation of text for semantic drift
// estimation. Implementations backed by a network service must honor the
// context deadline; the caller treats a timeout as "source unavailable" and
// falls back to the local embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// CursorStore persists per-source ingestion cursors (last-processed
// timestamp keyed by channel/repo) so re-ingestion is incremental instead of
// replaying history.
type CursorStore interface {
	Get(source schema.Source, key string) (time.Time, error)
	Set(source schema.Source, key string, ts time.Time) error
}

// ScoreCache caches computed leaderboard results for the query API. A miss
// or cache failure is never an error for the caller; the pipeline recomputes.
type ScoreCache interface {
	GetLeaderboard(ctx context.Context, key string) ([]schema.ScoreResult, bool)
	SetLeaderboard(ctx context.Context, key string, results []schema.ScoreResult, ttl time.Duration) error
	Close() error
}
