package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
)

// PrintIncidents outputs incident candidate snapshots, dispatching based on
// the output format configured.
func PrintIncidents(candidates []schema.IncidentCandidate, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, candidates)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVIncidents(w, candidates, fmtFloat)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeIncidentsText(w, candidates, cfg, fmtFloat, duration)
		}, "Wrote text")
	}
}

// writeIncidentsText renders candidates as a readable incident digest, one
// block per candidate with evidence, divergence and gaps.
func writeIncidentsText(w io.Writer, candidates []schema.IncidentCandidate, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	if len(candidates) == 0 {
		_, err := fmt.Fprintf(w, "No incident candidates.\n")
		return err
	}

	for i, c := range candidates {
		label := contract.GetPlainLabel(c.SeverityScore100)
		if cfg.UseColors {
			label = contract.GetColorLabel(c.SeverityScore100)
		}
		name := c.ComponentName
		if name == "" {
			name = c.ComponentID
		}
		if _, err := fmt.Fprintf(w, "%d. 🚨 %s  severity %s (%s)  dissatisfaction %s\n",
			i+1, name, fmtFloat(c.SeverityScore), label, fmtFloat(c.DissatisfactionScore)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "   Snapshot %s at %s\n", c.SnapshotID, c.CreatedAt.Format(contract.DateTimeFormat)); err != nil {
			return err
		}

		for _, item := range c.Evidence {
			title := item.Title
			if title == "" {
				title = item.SignalID
			}
			if _, err := fmt.Fprintf(w, "   - [%s] %s (weight %.2f)\n", item.Source, title, item.DecayedWeight); err != nil {
				return err
			}
		}
		for _, d := range c.Divergence.Items {
			if _, err := fmt.Fprintf(w, "   ⇄ %s\n", d.Description); err != nil {
				return err
			}
		}
		for _, gap := range c.InformationGaps {
			if _, err := fmt.Fprintf(w, "   ? %s: %s\n", gap.EntityID, gap.Description); err != nil {
				return err
			}
		}
		for _, entity := range c.IncidentEntities {
			if entity.DependencySummary != "" {
				if _, err := fmt.Fprintf(w, "   ↳ %s\n", entity.DependencySummary); err != nil {
					return err
				}
			}
			if entity.SuggestedAction != "" {
				if _, err := fmt.Fprintf(w, "   → %s\n", entity.SuggestedAction); err != nil {
					return err
				}
			}
		}
		if _, err := fmt.Fprintf(w, "\n"); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "%d candidate(s). Scan completed in %v\n", len(candidates), duration)
	return err
}

// writeCSVIncidents writes one flat record per candidate.
func writeCSVIncidents(w io.Writer, candidates []schema.IncidentCandidate, fmtFloat func(float64) string) error {
	header := []string{
		"rank",
		"snapshot_id",
		"component_id",
		"created_at",
		"severity_score",
		"dissatisfaction_score",
		"activity_score",
		"label",
		"evidence_count",
		"gap_count",
	}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		for i, c := range candidates {
			rec := []string{
				strconv.Itoa(i + 1),
				c.SnapshotID,
				c.ComponentID,
				c.CreatedAt.Format(contract.DateTimeFormat),
				fmtFloat(c.SeverityScore),
				fmtFloat(c.DissatisfactionScore),
				fmtFloat(c.ActivityScore),
				contract.GetPlainLabel(c.SeverityScore100),
				strconv.Itoa(len(c.Evidence)),
				strconv.Itoa(len(c.InformationGaps)),
			}
			if err := csvWriter.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
