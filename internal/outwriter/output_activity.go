package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
)

// PrintActivityResult outputs one component's scoring result, dispatching
// based on the output format configured.
func PrintActivityResult(result schema.ScoreResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)
	view := schema.NewActivityView(result)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, view)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVActivity(w, view, fmtFloat, intFmt)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeActivityText(w, result, view, cfg, fmtFloat, intFmt, duration)
		}, "Wrote text")
	}
}

// writeActivityText renders the human-readable per-component report.
func writeActivityText(w io.Writer, result schema.ScoreResult, view schema.ActivityView, cfg *contract.Config, fmtFloat func(float64) string, intFmt string, duration time.Duration) error {
	name := view.ComponentName
	if name == "" {
		name = view.ComponentID
	}
	if _, err := fmt.Fprintf(w, "📊 %s (%s, last %s)\n", name, view.ComponentID, view.TimeWindowLabel); err != nil {
		return err
	}

	if view.NoSignals {
		_, err := fmt.Fprintf(w, "   No signals in window.\n")
		return err
	}

	label := contract.GetPlainLabel(result.SeverityScore100)
	if cfg.UseColors {
		label = contract.GetColorLabel(result.SeverityScore100)
	}
	rows := []struct {
		name  string
		value string
	}{
		{"Activity", fmtFloat(view.ActivityScore)},
		{"Dissatisfaction", fmtFloat(view.DissatisfactionScore)},
		{"Severity (CRT)", fmt.Sprintf("%s %s", fmtFloat(view.SeverityScore), label)},
		{"Git events", fmt.Sprintf(intFmt, view.GitEvents)},
		{"Slack conversations", fmt.Sprintf(intFmt, view.SlackConversations)},
		{"Slack complaints", fmt.Sprintf(intFmt, view.SlackComplaints)},
		{"Open support cases", fmt.Sprintf(intFmt, view.OpenSupportCases)},
		{"Open doc issues", fmt.Sprintf(intFmt, view.OpenDocIssues)},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "   %-20s %s\n", row.name, row.value); err != nil {
			return err
		}
	}

	if cfg.Explain {
		if err := writeActivityExplain(w, result, fmtFloat); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "Computed in %v\n", duration)
	return err
}

// writeActivityExplain renders the per-source breakdown so a reader can
// reconstruct "why this score" without re-running the pipeline.
func writeActivityExplain(w io.Writer, result schema.ScoreResult, fmtFloat func(float64) string) error {
	if _, err := fmt.Fprintf(w, "   Breakdown (sub-score x weight = contribution):\n"); err != nil {
		return err
	}
	for _, source := range schema.AllSources {
		sub, ok := result.Breakdown[source]
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, "     %-8s %.2f x %.2f = %.2f\n",
			source, sub, result.Weights[source], result.Contributions[source]); err != nil {
			return err
		}
	}
	for _, pair := range result.Details.Drift {
		if _, err := fmt.Fprintf(w, "     drift %-12s %s (matches: %d)\n",
			pair.Pair, fmtFloat(pair.Drift), pair.Matches); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "   Dominant: %s\n", formatTopContributors(result.Contributions))
	return err
}

// writeCSVActivity writes the flattened view as a single CSV record.
func writeCSVActivity(w io.Writer, view schema.ActivityView, fmtFloat func(float64) string, intFmt string) error {
	header := []string{
		"component_id",
		"component_name",
		"activity_score",
		"dissatisfaction_score",
		"severity_score",
		"git_events",
		"slack_conversations",
		"slack_complaints",
		"open_support_cases",
		"open_doc_issues",
		"time_window",
	}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		return csvWriter.Write([]string{
			view.ComponentID,
			view.ComponentName,
			fmtFloat(view.ActivityScore),
			fmtFloat(view.DissatisfactionScore),
			fmtFloat(view.SeverityScore),
			fmt.Sprintf(intFmt, view.GitEvents),
			fmt.Sprintf(intFmt, view.SlackConversations),
			fmt.Sprintf(intFmt, view.SlackComplaints),
			fmt.Sprintf(intFmt, view.OpenSupportCases),
			fmt.Sprintf(intFmt, view.OpenDocIssues),
			view.TimeWindowLabel,
		})
	})
}
