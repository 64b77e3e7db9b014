package schema

import (
	"time"
)

// RawEvent is one per-source event record as produced by an ingestion
// connector (GitHub/Slack/support/doc-issue client). The engine consumes it
// read-only; the connector owns the payload shape upstream of this struct.
type RawEvent struct {
	Source       Source    `json:"source"`
	Kind         string    `json:"kind"`        // pr, commit, doc_edit, message, case, issue
	NaturalKey   string    `json:"natural_key"` // e.g. "payments-svc#412", "C123/1726.5031"
	ComponentIDs []string  `json:"component_ids"`
	Timestamp    time.Time `json:"timestamp"`
	Actor        string    `json:"actor,omitempty"`
	Title        string    `json:"title,omitempty"`
	Body         string    `json:"body,omitempty"`
	URL          string    `json:"url,omitempty"`
	Labels       []string  `json:"labels,omitempty"`

	// Slack specifics
	Channel         string `json:"channel,omitempty"`
	ThreadID        string `json:"thread_id,omitempty"`
	Reactions       int    `json:"reactions,omitempty"`
	Complaint       bool   `json:"complaint,omitempty"`
	CriticalChannel bool   `json:"critical_channel,omitempty"`

	// Git specifics
	LinesChanged int  `json:"lines_changed,omitempty"`
	DocEdit      bool `json:"doc_edit,omitempty"`

	// Support specifics
	Escalated bool `json:"escalated,omitempty"`

	// Support/doc severity as reported by the upstream system.
	Severity string `json:"severity,omitempty"` // low, medium, high, critical

	// Doc specifics
	ImpactLevel string `json:"impact_level,omitempty"` // low, medium, high
	DocPath     string `json:"doc_path,omitempty"`
}

// ActivitySignal is one normalized unit of activity. It is created once at
// ingestion and never mutated; decay is always computed on read.
type ActivitySignal struct {
	ID              string    `json:"id"`
	Source          Source    `json:"source"`
	Kind            string    `json:"kind"`
	NaturalKey      string    `json:"natural_key"`
	ComponentIDs    []string  `json:"component_ids"`
	RawWeight       float64   `json:"raw_weight"`
	Timestamp       time.Time `json:"timestamp"`
	Actor           string    `json:"actor,omitempty"`
	Title           string    `json:"title,omitempty"`
	Body            string    `json:"body,omitempty"`
	URL             string    `json:"url,omitempty"`
	Labels          []string  `json:"labels,omitempty"`
	Channel         string    `json:"channel,omitempty"`
	ThreadID        string    `json:"thread_id,omitempty"`
	Reactions       int       `json:"reactions,omitempty"`
	Complaint       bool      `json:"complaint,omitempty"`
	CriticalChannel bool      `json:"critical_channel,omitempty"`
	LinesChanged    int       `json:"lines_changed,omitempty"`
	Escalated       bool      `json:"escalated,omitempty"`
	DocEdit         bool      `json:"doc_edit,omitempty"`
	Severity        string    `json:"severity,omitempty"`
	ImpactLevel     string    `json:"impact_level,omitempty"`
}

// AgeHours returns the signal age in hours relative to now.
func (s *ActivitySignal) AgeHours(now time.Time) float64 {
	return now.Sub(s.Timestamp).Hours()
}

// Component is a logical product/service unit scored by the engine.
type Component struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Team string `json:"team,omitempty"` // owning team, optional
}

// GitFeatures is the fixed-shape rollup produced by the git aggregator.
type GitFeatures struct {
	PRCount            int `json:"pr_count"`
	CommitCount        int `json:"commit_count"`
	DocEditCount       int `json:"doc_edit_count"`
	BreakingLabelCount int `json:"breaking_label_count"`
	DistinctAuthors    int `json:"distinct_authors"`
	ChurnTotal         int `json:"churn_total"`
}

// SlackFeatures is the fixed-shape rollup produced by the slack aggregator.
type SlackFeatures struct {
	MessageCount      int  `json:"message_count"`
	ThreadCount       int  `json:"thread_count"`
	UniqueAuthors     int  `json:"unique_authors"`
	ComplaintCount    int  `json:"complaint_count"`
	ReactionTotal     int  `json:"reaction_total"`
	InCriticalChannel bool `json:"in_critical_channel"`
}

// SupportFeatures is the fixed-shape rollup produced by the support aggregator.
type SupportFeatures struct {
	OpenCases      int     `json:"open_cases"`
	EscalatedCases int     `json:"escalated_cases"`
	AvgSeverity    float64 `json:"avg_severity"` // 0-1, mapped from severity labels
}

// DocFeatures is the fixed-shape rollup produced by the doc aggregator.
type DocFeatures struct {
	OpenIssues        int       `json:"open_issues"`
	BaseSeverityScore float64   `json:"base_severity_score"` // 0-1
	ImpactLevelScore  float64   `json:"impact_level_score"`  // 0-1
	ComponentCount    int       `json:"component_count"`
	Labels            []string  `json:"labels,omitempty"`
	LastUpdated       time.Time `json:"last_updated,omitzero"`
}

// FeatureSet is the per-source, per-component rollup over a rolling window.
// Exactly one of the source-specific sub-structs is meaningful, selected by
// Source. A zero-valued FeatureSet with Unavailable set means the upstream
// source could not be reached; callers must treat it as "missing", not
// "measured zero".
type FeatureSet struct {
	Source      Source    `json:"source"`
	ComponentID string    `json:"component_id"`
	WindowHours float64   `json:"window_hours"`
	Unavailable bool      `json:"unavailable,omitempty"`
	SignalCount int       `json:"signal_count"`
	DecayedSum  float64   `json:"decayed_sum"`
	Latest      time.Time `json:"latest,omitzero"`

	Git     *GitFeatures     `json:"git,omitempty"`
	Slack   *SlackFeatures   `json:"slack,omitempty"`
	Support *SupportFeatures `json:"support,omitempty"`
	Doc     *DocFeatures     `json:"doc,omitempty"`
}

// Empty reports whether the feature set carries no measured signals.
func (f *FeatureSet) Empty() bool {
	return f.SignalCount == 0
}
