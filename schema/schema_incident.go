package schema

import "time"

// EvidenceItem is one source item backing an incident candidate, with a
// resolvable link. Items are ordered by decayed weight, recency breaking ties.
type EvidenceItem struct {
	SignalID      string    `json:"signal_id"`
	Source        Source    `json:"source"`
	Title         string    `json:"title,omitempty"`
	URL           string    `json:"url,omitempty"`
	DecayedWeight float64   `json:"decayed_weight"`
	Timestamp     time.Time `json:"timestamp"`
}

// DivergenceItem records a pairwise disagreement between two sources about
// severity/urgency, e.g. Slack says critical while docs show no update.
type DivergenceItem struct {
	Source1     Source `json:"source1"`
	Source2     Source `json:"source2"`
	Description string `json:"description"`
}

// Divergence bundles all pairwise source disagreements for a candidate.
type Divergence struct {
	Items []DivergenceItem `json:"items"`
}

// InformationGap flags evidence that is structurally missing, e.g. a flagged
// doc with no linked owner.
type InformationGap struct {
	EntityID    string `json:"entity_id"`
	Description string `json:"description"`
}

// DocStatus summarizes the documentation health of an incident entity.
type DocStatus struct {
	Severity string `json:"severity"`
	Reason   string `json:"reason,omitempty"`
}

// IncidentEntity is one impacted entity inside an incident candidate, with
// its own per-source signal maps and suggested action.
type IncidentEntity struct {
	ID                     string             `json:"id"`
	Name                   string             `json:"name,omitempty"`
	ActivitySignals        map[Source]float64 `json:"activity_signals"`
	DissatisfactionSignals map[Source]float64 `json:"dissatisfaction_signals"`
	DocStatus              DocStatus          `json:"doc_status"`
	DependencySummary      string             `json:"dependency_summary,omitempty"`
	SuggestedAction        string             `json:"suggested_action,omitempty"`
	EvidenceIDs            []string           `json:"evidence_ids,omitempty"`
}

// IncidentCandidate is a promoted, ranked anomaly. It is an immutable
// snapshot: a later re-run that produces a different score creates a new
// candidate, it never mutates an old one.
type IncidentCandidate struct {
	SnapshotID           string             `json:"snapshot_id"`
	ComponentID          string             `json:"component_id"`
	ComponentName        string             `json:"component_name,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	SeverityScore        float64            `json:"severity_score"`     // 0-10
	SeverityScore100     float64            `json:"severity_score_100"` // SeverityScore * 10
	ActivityScore        float64            `json:"activity_score"`
	DissatisfactionScore float64            `json:"dissatisfaction_score"`
	Breakdown            map[Source]float64 `json:"breakdown"`
	Weights              map[Source]float64 `json:"weights"`
	Contributions        map[Source]float64 `json:"contributions"`
	IncidentEntities     []IncidentEntity   `json:"incident_entities"`
	DependencyImpact     DependencyImpact   `json:"dependency_impact"`
	Evidence             []EvidenceItem     `json:"evidence"`
	Divergence           Divergence         `json:"divergence"`
	InformationGaps      []InformationGap   `json:"information_gaps,omitempty"`
	SuggestedAction      string             `json:"suggested_action,omitempty"`
	Metadata             map[string]string  `json:"metadata"`
}

// SnapshotMetadataKey marks a persisted candidate row as an immutable snapshot.
const SnapshotMetadataKey = "incident_candidate_snapshot"
