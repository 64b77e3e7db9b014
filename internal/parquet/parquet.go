// Package parquet provides data structures and functions for exporting score
// and signal data to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/crtscope/crtscope/schema"
	"github.com/parquet-go/parquet-go"
)

// ScoreRow is one component scoring result flattened for columnar export.
type ScoreRow struct {
	// ComponentID is the namespaced component identifier
	ComponentID string `parquet:"component_id,snappy"`

	// ComponentName is the human-readable component name (nullable)
	ComponentName *string `parquet:"component_name,optional,snappy"`

	// ComputedAt is when the score was computed (stored as TIMESTAMP with nanosecond precision)
	ComputedAt time.Time `parquet:"computed_at,snappy"`

	// WindowHours is the rolling window the score covers
	WindowHours float64 `parquet:"window_hours,snappy"`

	ActivityScore        float64 `parquet:"activity_score,snappy"`
	DissatisfactionScore float64 `parquet:"dissatisfaction_score,snappy"`
	SeverityScore        float64 `parquet:"severity_score,snappy"`

	// Per-source sub-scores, 0-1; negative means the source produced no data
	GitSubScore     float64 `parquet:"git_sub_score,snappy"`
	SlackSubScore   float64 `parquet:"slack_sub_score,snappy"`
	SupportSubScore float64 `parquet:"support_sub_score,snappy"`
	DocSubScore     float64 `parquet:"doc_sub_score,snappy"`

	// NoSignals marks a component with no data in the window
	NoSignals bool `parquet:"no_signals,snappy"`
}

// SignalRow is one normalized signal flattened for columnar export.
type SignalRow struct {
	SignalID   string `parquet:"signal_id,snappy"`
	Source     string `parquet:"source,snappy"`
	Kind       string `parquet:"kind,snappy"`
	NaturalKey string `parquet:"natural_key,snappy"`

	// ComponentIDs joins the linked components with '|'
	ComponentIDs string `parquet:"component_ids,snappy"`

	RawWeight float64   `parquet:"raw_weight,snappy"`
	Timestamp time.Time `parquet:"timestamp,snappy"`

	Actor *string `parquet:"actor,optional,snappy"`
	Title *string `parquet:"title,optional,snappy"`
	URL   *string `parquet:"url,optional,snappy"`
}

// noDataSubScore marks a source absent from the breakdown, as opposed to a
// measured zero.
const noDataSubScore = -1

// WriteScoresParquet writes a slice of ScoreRow structs to a Parquet file.
func WriteScoresParquet(data []ScoreRow, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Schema is derived from the ScoreRow struct tags
	writer := parquet.NewGenericWriter[ScoreRow](file)
	defer func() { _ = writer.Close() }()

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	return nil
}

// WriteSignalsParquet writes a slice of SignalRow structs to a Parquet file.
func WriteSignalsParquet(data []SignalRow, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Schema is derived from the SignalRow struct tags
	writer := parquet.NewGenericWriter[SignalRow](file)
	defer func() { _ = writer.Close() }()

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	return nil
}

// ConvertScoreResults converts schema.ScoreResult to ScoreRow for Parquet export.
func ConvertScoreResults(results []schema.ScoreResult) []ScoreRow {
	rows := make([]ScoreRow, len(results))
	for i, r := range results {
		row := ScoreRow{
			ComponentID:          r.ComponentID,
			ComputedAt:           r.ComputedAt,
			WindowHours:          r.WindowHours,
			ActivityScore:        r.ActivityScore,
			DissatisfactionScore: r.DissatisfactionScore,
			SeverityScore:        r.SeverityScore,
			GitSubScore:          subScoreOrNoData(r.Breakdown, schema.GitSource),
			SlackSubScore:        subScoreOrNoData(r.Breakdown, schema.SlackSource),
			SupportSubScore:      subScoreOrNoData(r.Breakdown, schema.SupportSource),
			DocSubScore:          subScoreOrNoData(r.Breakdown, schema.DocSource),
			NoSignals:            r.NoSignals,
		}
		if r.ComponentName != "" {
			name := r.ComponentName
			row.ComponentName = &name
		}
		rows[i] = row
	}
	return rows
}

// ConvertSignals converts schema.ActivitySignal to SignalRow for Parquet export.
func ConvertSignals(signals []schema.ActivitySignal) []SignalRow {
	rows := make([]SignalRow, len(signals))
	for i, s := range signals {
		row := SignalRow{
			SignalID:     s.ID,
			Source:       string(s.Source),
			Kind:         s.Kind,
			NaturalKey:   s.NaturalKey,
			ComponentIDs: strings.Join(s.ComponentIDs, "|"),
			RawWeight:    s.RawWeight,
			Timestamp:    s.Timestamp,
		}
		row.Actor = optionalString(s.Actor)
		row.Title = optionalString(s.Title)
		row.URL = optionalString(s.URL)
		rows[i] = row
	}
	return rows
}

func subScoreOrNoData(breakdown map[schema.Source]float64, source schema.Source) float64 {
	if sub, ok := breakdown[source]; ok {
		return sub
	}
	return noDataSubScore
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
