// Package outwriter has output and writer logic.
package outwriter

import (
	"os"
	"time"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteActivity prints one component's scoring result using the configured
// output format.
func (ow *OutWriter) WriteActivity(result schema.ScoreResult, cfg *contract.Config, duration time.Duration) error {
	return PrintActivityResult(result, cfg, duration)
}

// WriteLeaderboard prints the dissatisfaction leaderboard using the
// configured output format.
func (ow *OutWriter) WriteLeaderboard(results []schema.ScoreResult, cfg *contract.Config, duration time.Duration) error {
	return PrintLeaderboard(results, cfg, duration)
}

// WriteIncidents prints incident candidate snapshots using the configured
// output format.
func (ow *OutWriter) WriteIncidents(candidates []schema.IncidentCandidate, cfg *contract.Config, duration time.Duration) error {
	return PrintIncidents(candidates, cfg, duration)
}

// WriteImpact prints a dependency blast radius using the configured output
// format.
func (ow *OutWriter) WriteImpact(impact schema.DependencyImpact, cfg *contract.Config) error {
	return PrintImpact(impact, cfg)
}

// WriteStatus prints graph store connectivity and volume information.
func (ow *OutWriter) WriteStatus(status schema.GraphStatus, cfg *contract.Config) error {
	return PrintStatus(status, cfg)
}

// GetMaxTableIDWidth calculates the maximum width for component IDs in table
// output based on terminal width.
func GetMaxTableIDWidth(cfg *contract.Config) int {
	// Get terminal width
	termWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || termWidth <= 0 {
		// Fallback to conservative default if terminal size can't be detected
		termWidth = 80 // Conservative default for narrow terminals and CI
	}

	// Reserve space for fixed columns with table formatting
	baseWidth := 45 // Rank + three score columns with borders/padding
	if cfg.Explain {
		baseWidth += 35 // Explain column with formatting
	}

	available := termWidth - baseWidth
	if available < 15 {
		return 15
	}
	if available > 60 {
		return 60
	}
	return available
}
