// Package ingest loads raw per-source event batches, normalizes them into
// activity signals and upserts them into the graph store. Connectors export
// events as JSON; this package owns everything after the export.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/crtscope/crtscope/core"
	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
)

// Report summarizes one ingestion batch.
type Report struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"` // behind the cursor, already ingested
	Malformed int `json:"malformed"`
}

// Ingestor normalizes raw events and writes them to the graph store,
// tracking per-stream cursors so re-running over the same export is
// incremental.
type Ingestor struct {
	store      contract.GraphStore
	cursors    contract.CursorStore
	normalizer *core.Normalizer
}

// NewIngestor returns an Ingestor. A nil cursor store disables incremental
// tracking; every event is processed (upserts stay idempotent regardless).
func NewIngestor(store contract.GraphStore, cursors contract.CursorStore) *Ingestor {
	return &Ingestor{store: store, cursors: cursors, normalizer: core.NewNormalizer()}
}

// IngestFile reads a JSON export (array or one object per line) and ingests
// every event in it.
func (in *Ingestor) IngestFile(ctx context.Context, path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read events file %q: %w", path, err)
	}
	events, err := decodeEvents(data)
	if err != nil {
		return Report{}, fmt.Errorf("failed to parse events file %q: %w", path, err)
	}
	return in.IngestEvents(ctx, events)
}

// IngestEvents normalizes and stores a batch. Malformed events are logged
// and counted, never fatal for the batch. Cursors advance to the newest
// processed timestamp per stream after the batch succeeds.
func (in *Ingestor) IngestEvents(ctx context.Context, events []schema.RawEvent) (Report, error) {
	var report Report
	latest := map[schema.Source]map[string]time.Time{}

	for _, raw := range events {
		key := streamKey(raw)
		if in.cursors != nil {
			cursor, err := in.cursors.Get(raw.Source, key)
			if err != nil {
				return report, err
			}
			if !raw.Timestamp.After(cursor) {
				report.Skipped++
				continue
			}
		}

		signal, err := in.normalizer.Normalize(raw)
		if err != nil {
			contract.LogWarn("skipping malformed event", err)
			report.Malformed++
			continue
		}
		if err := in.store.UpsertSignal(ctx, signal); err != nil {
			return report, err
		}
		report.Processed++

		if latest[raw.Source] == nil {
			latest[raw.Source] = map[string]time.Time{}
		}
		if raw.Timestamp.After(latest[raw.Source][key]) {
			latest[raw.Source][key] = raw.Timestamp
		}
	}

	if in.cursors != nil {
		for source, streams := range latest {
			for key, ts := range streams {
				if err := in.cursors.Set(source, key, ts); err != nil {
					return report, err
				}
			}
		}
	}
	return report, nil
}

// streamKey identifies the upstream stream a cursor tracks: a Slack channel,
// a git repo, a support queue or a doc space.
func streamKey(raw schema.RawEvent) string {
	switch raw.Source {
	case schema.SlackSource:
		if raw.Channel != "" {
			return raw.Channel
		}
	case schema.GitSource:
		if repo, _, ok := strings.Cut(raw.NaturalKey, "#"); ok && repo != "" {
			return repo
		}
	case schema.DocSource:
		if raw.DocPath != "" {
			return raw.DocPath
		}
	}
	return "default"
}

// decodeEvents accepts either a JSON array or newline-delimited JSON objects.
func decodeEvents(data []byte) ([]schema.RawEvent, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var events []schema.RawEvent
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, err
		}
		return events, nil
	}

	var events []schema.RawEvent
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	for decoder.More() {
		var event schema.RawEvent
		if err := decoder.Decode(&event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}
