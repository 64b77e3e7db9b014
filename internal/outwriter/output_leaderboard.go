package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintLeaderboard outputs the dissatisfaction leaderboard, dispatching based
// on the output format configured.
func PrintLeaderboard(results []schema.ScoreResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSONLeaderboard(w, results)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVLeaderboard(w, results, fmtFloat, intFmt)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeLeaderboardTable(w, results, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
}

// writeLeaderboardTable generates and writes the human-readable table.
func writeLeaderboardTable(w io.Writer, results []schema.ScoreResult, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	table := tablewriter.NewWriter(w)

	headers := []string{"Rank", "Component", "Dissat", "Activity", "Severity", "Label"}
	if cfg.Explain {
		headers = append(headers, "Dominant")
	}
	table.Header(headers)

	table.Configure(func(tableCfg *tablewriter.Config) {
		tableCfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for i, r := range results {
		label := contract.GetPlainLabel(r.SeverityScore100)
		if cfg.UseColors {
			label = contract.GetColorLabel(r.SeverityScore100)
		}
		row := []string{
			strconv.Itoa(i + 1),
			contract.TruncateID(r.ComponentID, GetMaxTableIDWidth(cfg)),
			fmtFloat(r.DissatisfactionScore),
			fmtFloat(r.ActivityScore),
			fmtFloat(r.SeverityScore),
			label,
		}
		if cfg.Explain {
			row = append(row, formatTopContributors(r.Contributions))
		}
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "Showing top %d components\n", len(results)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Scored in %v with %d workers. Graph backend: %s\n", duration, cfg.Workers, cfg.GraphBackend); err != nil {
		return err
	}
	return nil
}

// writeCSVLeaderboard writes the leaderboard in CSV format.
func writeCSVLeaderboard(w io.Writer, results []schema.ScoreResult, fmtFloat func(float64) string, intFmt string) error {
	header := []string{
		"rank",
		"component_id",
		"component_name",
		"dissatisfaction_score",
		"activity_score",
		"severity_score",
		"label",
		"git_events",
		"slack_complaints",
		"open_doc_issues",
	}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		for i, r := range results {
			view := schema.NewActivityView(r)
			rec := []string{
				strconv.Itoa(i + 1),
				r.ComponentID,
				r.ComponentName,
				fmtFloat(r.DissatisfactionScore),
				fmtFloat(r.ActivityScore),
				fmtFloat(r.SeverityScore),
				contract.GetPlainLabel(r.SeverityScore100),
				fmt.Sprintf(intFmt, view.GitEvents),
				fmt.Sprintf(intFmt, view.SlackComplaints),
				fmt.Sprintf(intFmt, view.OpenDocIssues),
			}
			if err := csvWriter.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeJSONLeaderboard writes the leaderboard in JSON format with rank and
// label added.
func writeJSONLeaderboard(w io.Writer, results []schema.ScoreResult) error {
	type JSONLeaderboardEntry struct {
		Rank  int    `json:"rank"`
		Label string `json:"label"`
		schema.ScoreResult
	}

	output := make([]JSONLeaderboardEntry, len(results))
	for i, r := range results {
		output[i] = JSONLeaderboardEntry{
			Rank:        i + 1,
			Label:       contract.GetPlainLabel(r.SeverityScore100),
			ScoreResult: r,
		}
	}
	return writeJSON(w, output)
}
