package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/crtscope/crtscope/internal/cursor"
	"github.com/crtscope/crtscope/internal/graphstore"
	"github.com/crtscope/crtscope/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIngestor(t *testing.T) (*Ingestor, *graphstore.Store) {
	t.Helper()
	store, err := graphstore.New(schema.SQLiteBackend, filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cursors, err := cursor.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewIngestor(store, cursors), store
}

func gitEvent(key string, ts time.Time) schema.RawEvent {
	return schema.RawEvent{
		Source:       schema.GitSource,
		Kind:         "pr",
		NaturalKey:   key,
		ComponentIDs: []string{"payments"},
		Timestamp:    ts,
		Actor:        "dev-a",
	}
}

func TestIngestEvents(t *testing.T) {
	ingestor, store := newTestIngestor(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	report, err := ingestor.IngestEvents(ctx, []schema.RawEvent{
		gitEvent("payments-svc#1", base),
		gitEvent("payments-svc#2", base.Add(time.Hour)),
		{Source: schema.SlackSource, Kind: "message", NaturalKey: "C123/1.1",
			ComponentIDs: []string{"payments"}, Timestamp: base, Channel: "#payments-help"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Processed)
	assert.Zero(t, report.Skipped)
	assert.Zero(t, report.Malformed)

	signals, err := store.SignalsForComponent(ctx, "comp:payments", "", base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, signals, 3)
}

// TestIngestIncremental verifies a second run over the same export skips
// everything at or behind the cursor.
func TestIngestIncremental(t *testing.T) {
	ingestor, _ := newTestIngestor(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	batch := []schema.RawEvent{
		gitEvent("payments-svc#1", base),
		gitEvent("payments-svc#2", base.Add(time.Hour)),
	}
	report, err := ingestor.IngestEvents(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)

	report, err = ingestor.IngestEvents(ctx, batch)
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
	assert.Equal(t, 2, report.Skipped)

	// Newer events in the same stream still land.
	report, err = ingestor.IngestEvents(ctx, append(batch, gitEvent("payments-svc#3", base.Add(2*time.Hour))))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 2, report.Skipped)
}

// TestIngestMalformedSkipped verifies a bad event never poisons the batch.
func TestIngestMalformedSkipped(t *testing.T) {
	ingestor, store := newTestIngestor(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	report, err := ingestor.IngestEvents(ctx, []schema.RawEvent{
		{Source: schema.GitSource, Kind: "pr", NaturalKey: "no-components#1", Timestamp: base},
		gitEvent("payments-svc#1", base),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Malformed)

	signals, err := store.SignalsForComponent(ctx, "comp:payments", schema.GitSource, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, signals, 1)
}

func TestIngestFileFormats(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	array := `[{"source":"git","kind":"pr","natural_key":"svc#1","component_ids":["payments"],"timestamp":"` +
		base.Format(time.RFC3339) + `"}]`
	ndjson := `{"source":"git","kind":"pr","natural_key":"svc#2","component_ids":["payments"],"timestamp":"` +
		base.Format(time.RFC3339) + `"}
{"source":"git","kind":"commit","natural_key":"abc123","component_ids":["payments"],"timestamp":"` +
		base.Format(time.RFC3339) + `"}`

	testCases := []struct {
		name      string
		content   string
		processed int
	}{
		{"json array", array, 1},
		{"ndjson", ndjson, 2},
		{"empty file", "", 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ingestor, _ := newTestIngestor(t)
			path := filepath.Join(t.TempDir(), "events.json")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))

			report, err := ingestor.IngestFile(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, tc.processed, report.Processed)
		})
	}
}

func TestIngestFileMissing(t *testing.T) {
	ingestor, _ := newTestIngestor(t)
	_, err := ingestor.IngestFile(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestStreamKey(t *testing.T) {
	testCases := []struct {
		name string
		raw  schema.RawEvent
		want string
	}{
		{"slack channel", schema.RawEvent{Source: schema.SlackSource, Channel: "#help"}, "#help"},
		{"git repo", schema.RawEvent{Source: schema.GitSource, NaturalKey: "payments-svc#412"}, "payments-svc"},
		{"doc path", schema.RawEvent{Source: schema.DocSource, DocPath: "runbooks/payments.md"}, "runbooks/payments.md"},
		{"support default", schema.RawEvent{Source: schema.SupportSource, NaturalKey: "CASE-9"}, "default"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, streamKey(tc.raw))
		})
	}
}
