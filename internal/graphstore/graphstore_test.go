package graphstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/crtscope/crtscope/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "graph.db")
	store, err := New(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSignal(id string, source schema.Source, componentID string, ts time.Time) schema.ActivitySignal {
	return schema.ActivitySignal{
		ID:           id,
		Source:       source,
		Kind:         "pr",
		NaturalKey:   id,
		ComponentIDs: []string{componentID},
		RawWeight:    1.8,
		Timestamp:    ts,
	}
}

// TestUpsertSignalIdempotent verifies merge-by-ID semantics: re-ingesting the
// same signal overwrites instead of duplicating.
func TestUpsertSignalIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	sig := testSignal("signal:git:pr:svc#1", schema.GitSource, "comp:payments", ts)
	require.NoError(t, store.UpsertSignal(ctx, sig))

	sig.RawWeight = 2.3
	require.NoError(t, store.UpsertSignal(ctx, sig))

	signals, err := store.SignalsForComponent(ctx, "comp:payments", schema.GitSource, ts.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, 2.3, signals[0].RawWeight, "second write wins")

	status, err := store.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.SignalCount)
}

func TestSignalsForComponentFiltering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertSignal(ctx, testSignal("signal:git:pr:a#1", schema.GitSource, "comp:a", base)))
	require.NoError(t, store.UpsertSignal(ctx, testSignal("signal:slack:message:c/1", schema.SlackSource, "comp:a", base)))
	require.NoError(t, store.UpsertSignal(ctx, testSignal("signal:git:pr:a#2", schema.GitSource, "comp:a", base.Add(-72*time.Hour))))
	require.NoError(t, store.UpsertSignal(ctx, testSignal("signal:git:pr:b#1", schema.GitSource, "comp:b", base)))

	// Source filter plus since filter.
	signals, err := store.SignalsForComponent(ctx, "comp:a", schema.GitSource, base.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "signal:git:pr:a#1", signals[0].ID)

	// Empty source means all sources.
	signals, err = store.SignalsForComponent(ctx, "comp:a", "", base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, signals, 2)
}

// TestUpsertEdgeIdempotent verifies duplicate edges never accumulate.
func TestUpsertEdgeIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	edge := schema.GraphEdge{FromID: "comp:a", ToID: "comp:b", Kind: schema.DependsOnEdge}

	require.NoError(t, store.UpsertEdge(ctx, edge))
	require.NoError(t, store.UpsertEdge(ctx, edge))

	edges, err := store.EdgesFrom(ctx, "comp:a")
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestComponentRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	component := schema.Component{ID: "comp:payments", Name: "Payments", Team: "payments"}
	require.NoError(t, store.UpsertComponent(ctx, component))

	got, err := store.GetComponent(ctx, "comp:payments")
	require.NoError(t, err)
	assert.Equal(t, component, got)

	_, err = store.GetComponent(ctx, "comp:ghost")
	assert.Error(t, err)

	components, err := store.ListComponents(ctx)
	require.NoError(t, err)
	require.Len(t, components, 1)
}

func TestNeighborhoodBuckets(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	edges := []schema.GraphEdge{
		{FromID: "doc:runbook", ToID: "comp:payments", Kind: schema.DocumentsEdge},
		{FromID: "comp:payments", ToID: "api:POST-/charge", Kind: schema.ExposesEdge},
		{FromID: "comp:payments", ToID: "svc:frontend", Kind: schema.ServesEdge},
		{FromID: "comp:other", ToID: "doc:unrelated", Kind: schema.DocumentsEdge},
	}
	for _, e := range edges {
		require.NoError(t, store.UpsertEdge(ctx, e))
	}

	nb, err := store.Neighborhood(ctx, "comp:payments")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc:runbook"}, nb.DocIDs)
	assert.Equal(t, []string{"api:POST-/charge"}, nb.APIEndpointIDs)
	assert.Empty(t, nb.IssueIDs)
}

// TestCandidatesAppendOnly verifies snapshot history accumulates and lists
// newest first.
func TestCandidatesAppendOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"snap-1", "snap-2", "snap-3"} {
		c := schema.IncidentCandidate{
			SnapshotID:    id,
			ComponentID:   "comp:payments",
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
			SeverityScore: 7.5,
			Metadata:      map[string]string{schema.SnapshotMetadataKey: "true"},
		}
		require.NoError(t, store.SaveCandidate(ctx, c))
	}

	candidates, err := store.ListCandidates(ctx, 2)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "snap-3", candidates[0].SnapshotID)
	assert.Equal(t, "snap-2", candidates[1].SnapshotID)
}

func TestRunTracking(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	runID, err := store.BeginRun(ctx, start, map[string]any{"window_hours": 168.0})
	require.NoError(t, err)
	assert.Positive(t, runID)

	require.NoError(t, store.EndRun(ctx, runID, start.Add(time.Minute), 12))
}

// TestNoneBackendIsNoOp verifies the disabled store accepts writes silently
// and reads come back empty.
func TestNoneBackendIsNoOp(t *testing.T) {
	store, err := New(schema.NoneBackend, "")
	require.NoError(t, err)
	ctx := context.Background()

	assert.NoError(t, store.UpsertEdge(ctx, schema.GraphEdge{FromID: "comp:a", ToID: "comp:b", Kind: schema.DependsOnEdge}))

	edges, err := store.EdgesFrom(ctx, "comp:a")
	require.NoError(t, err)
	assert.Empty(t, edges)

	status, err := store.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Connected)

	_, err = store.GetComponent(ctx, "comp:a")
	assert.Error(t, err)
}

func TestGetNodeFallback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	node, err := store.GetNode(ctx, "doc:unknown")
	require.NoError(t, err)
	assert.Equal(t, schema.DocNode, node.Kind)
	assert.Empty(t, node.Name)
}
