package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
)

// PrintImpact outputs a dependency blast radius, dispatching based on the
// output format configured.
func PrintImpact(impact schema.DependencyImpact, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, impact)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVImpact(w, impact)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeImpactText(w, impact)
		}, "Wrote text")
	}
}

// writeImpactText renders the blast radius grouped by entity kind.
func writeImpactText(w io.Writer, impact schema.DependencyImpact) error {
	if _, err := fmt.Fprintf(w, "🕸️  Blast radius of %s (depth %d)\n", impact.RootID, impact.MaxDepth); err != nil {
		return err
	}
	if impact.Reason != "" {
		if _, err := fmt.Fprintf(w, "   ⚠ %s\n", impact.Reason); err != nil {
			return err
		}
	}

	groups := []struct {
		label string
		nodes []schema.ImpactNode
	}{
		{"Components", impact.Components},
		{"Docs", impact.Docs},
		{"Services", impact.Services},
		{"APIs", impact.APIs},
	}
	for _, group := range groups {
		if len(group.nodes) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "   %s:\n", group.label); err != nil {
			return err
		}
		for _, node := range group.nodes {
			name := node.Name
			if name == "" {
				name = node.ID
			}
			if _, err := fmt.Fprintf(w, "     hop %d  %s\n", node.Hop, name); err != nil {
				return err
			}
		}
	}

	if _, err := fmt.Fprintf(w, "%d doc(s), %d service(s) affected\n",
		impact.AffectedDocCount, impact.AffectedServiceCount); err != nil {
		return err
	}
	if impact.Partial {
		if _, err := fmt.Fprintf(w, "Result is partial.\n"); err != nil {
			return err
		}
	}
	return nil
}

// writeCSVImpact writes one record per reached node.
func writeCSVImpact(w io.Writer, impact schema.DependencyImpact) error {
	header := []string{"root_id", "node_id", "kind", "name", "hop"}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		all := [][]schema.ImpactNode{impact.Components, impact.Docs, impact.Services, impact.APIs}
		for _, nodes := range all {
			for _, node := range nodes {
				rec := []string{
					impact.RootID,
					node.ID,
					string(node.Kind),
					node.Name,
					fmt.Sprintf("%d", node.Hop),
				}
				if err := csvWriter.Write(rec); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// PrintStatus outputs graph store connectivity and volume information.
func PrintStatus(status schema.GraphStatus, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, status)
		}, "Wrote JSON")
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		state := "disconnected"
		if status.Connected {
			state = "connected"
		}
		if _, err := fmt.Fprintf(w, "Graph backend %s (%s)\n", status.Backend, state); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "  nodes: %d, edges: %d, signals: %d, candidates: %d\n",
			status.NodeCount, status.EdgeCount, status.SignalCount, status.CandidateCount); err != nil {
			return err
		}
		if !status.LastSignalTime.IsZero() {
			if _, err := fmt.Fprintf(w, "  last signal: %s\n", status.LastSignalTime.Format(contract.DateTimeFormat)); err != nil {
				return err
			}
		}
		return nil
	}, "Wrote text")
}
