package schema

import "time"

// SemanticPair is a drift measurement between two content pools, e.g. the
// canonical doc text of a component versus its recent live Slack/Git text.
// Drift and Cosine always satisfy drift = 1 - cosine for the same snapshot.
type SemanticPair struct {
	Pair    string  `json:"pair"` // e.g. "doc_vs_slack", "doc_vs_git"
	Cosine  float64 `json:"cosine"`
	Drift   float64 `json:"drift"`
	Matches int     `json:"matches"` // aligned passages above the match threshold
}

// SeverityDetails is the per-source explainability payload attached to a
// component's current score. Nil sub-structs mean the source produced no
// data in the window, as opposed to measuring zero.
type SeverityDetails struct {
	Git     *GitFeatures     `json:"git,omitempty"`
	Slack   *SlackFeatures   `json:"slack,omitempty"`
	Support *SupportFeatures `json:"support,omitempty"`
	Doc     *DocFeatures     `json:"doc,omitempty"`
	Drift   []SemanticPair   `json:"drift,omitempty"`
}

// ScoreResult is the full scoring output for one component. Breakdown,
// Weights and Contributions are kept as separate maps so a consumer can
// reconstruct "why this score" without re-running the pipeline.
//
// An empty Breakdown map with zero scores means no data was found for the
// component; explicit zero entries mean the sources were measured and summed
// to zero severity.
type ScoreResult struct {
	ComponentID          string             `json:"component_id"`
	ComponentName        string             `json:"component_name,omitempty"`
	ActivityScore        float64            `json:"activity_score"`        // 0-100
	DissatisfactionScore float64            `json:"dissatisfaction_score"` // 0-100
	SeverityScore        float64            `json:"severity_score"`        // 0-10, CRT scale
	SeverityScore100     float64            `json:"severity_score_100"`    // SeverityScore * 10
	Breakdown            map[Source]float64 `json:"breakdown"`             // sub-score per source, 0-1
	Weights              map[Source]float64 `json:"weights"`               // renormalized weights used
	Contributions        map[Source]float64 `json:"contributions"`         // sub-score * weight
	Details              SeverityDetails    `json:"details"`
	WindowHours          float64            `json:"window_hours"`
	NoSignals            bool               `json:"no_signals"`
	ComputedAt           time.Time          `json:"computed_at"`
}
