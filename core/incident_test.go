package core

import (
	"testing"
	"time"

	"github.com/crtscope/crtscope/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBuilder() *IncidentBuilder {
	b := NewIncidentBuilder(schema.DefaultIncidentThreshold, schema.DefaultDissatisfactionThreshold, 3, schema.DefaultHalfLifeHours)
	b.Now = func() time.Time { return aggNow }
	return b
}

// TestShouldPromoteThresholds covers both promotion paths and the discard path.
func TestShouldPromoteThresholds(t *testing.T) {
	b := testBuilder()

	tests := []struct {
		name     string
		result   schema.ScoreResult
		promoted bool
	}{
		{"severity at threshold", schema.ScoreResult{SeverityScore: 6.0}, true},
		{"severity above threshold", schema.ScoreResult{SeverityScore: 8.2}, true},
		{"dissatisfaction alone", schema.ScoreResult{SeverityScore: 2.0, DissatisfactionScore: 85}, true},
		{"below both", schema.ScoreResult{SeverityScore: 5.9, DissatisfactionScore: 10}, false},
		{"no signals never promotes", schema.ScoreResult{SeverityScore: 9.0, NoSignals: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.promoted, b.ShouldPromote(&tt.result))
		})
	}
}

// TestBuildEvidenceRanking verifies top-N selection per source by decayed
// weight with recency breaking ties.
func TestBuildEvidenceRanking(t *testing.T) {
	b := testBuilder()
	signals := []schema.ActivitySignal{
		{ID: "signal:git:pr:s#1", Source: schema.GitSource, RawWeight: 1.8, Timestamp: aggNow.Add(-1 * time.Hour)},
		{ID: "signal:git:pr:s#2", Source: schema.GitSource, RawWeight: 1.8, Timestamp: aggNow.Add(-48 * time.Hour)},
		{ID: "signal:git:pr:s#3", Source: schema.GitSource, RawWeight: 0.5, Timestamp: aggNow},
		{ID: "signal:git:pr:s#4", Source: schema.GitSource, RawWeight: 3.0, Timestamp: aggNow.Add(-1 * time.Hour)},
		{ID: "signal:slack:message:c/1", Source: schema.SlackSource, RawWeight: 1.0, Timestamp: aggNow},
	}
	result := schema.ScoreResult{SeverityScore: 7}

	candidate := b.Build(schema.Component{ID: "comp:core.payments", Team: "payments"}, &result, signals, schema.DependencyImpact{})

	var gitEvidence []schema.EvidenceItem
	for _, item := range candidate.Evidence {
		if item.Source == schema.GitSource {
			gitEvidence = append(gitEvidence, item)
		}
	}
	require.Len(t, gitEvidence, 3, "top-3 per source")
	assert.Equal(t, "signal:git:pr:s#4", gitEvidence[0].SignalID, "heaviest decayed weight first")
	// s#1 and s#2 share a raw weight; the fresher one decays less so it ranks
	// higher, and s#3 (light) is cut.
	assert.Equal(t, "signal:git:pr:s#1", gitEvidence[1].SignalID)
	for _, item := range gitEvidence {
		assert.NotEqual(t, "signal:git:pr:s#3", item.SignalID)
	}
}

// TestBuildDivergence verifies pairwise divergence items between sources that
// disagree about urgency.
func TestBuildDivergence(t *testing.T) {
	b := testBuilder()
	result := schema.ScoreResult{
		SeverityScore: 7,
		Breakdown: map[schema.Source]float64{
			schema.SlackSource: 0.9,
			schema.DocSource:   0.1,
			schema.GitSource:   0.8,
		},
	}

	candidate := b.Build(schema.Component{ID: "comp:core.payments", Team: "payments"}, &result, nil, schema.DependencyImpact{})

	require.NotEmpty(t, candidate.Divergence.Items)
	found := false
	for _, item := range candidate.Divergence.Items {
		if item.Source1 == schema.SlackSource && item.Source2 == schema.DocSource {
			found = true
			assert.Contains(t, item.Description, "slack")
		}
		// git (0.8) vs slack (0.9) agree; no item for them
		assert.False(t, item.Source1 == schema.GitSource && item.Source2 == schema.SlackSource)
	}
	assert.True(t, found, "slack vs doc divergence expected")
}

// TestBuildInformationGaps covers the structural-gap heuristics.
func TestBuildInformationGaps(t *testing.T) {
	b := testBuilder()

	noOwner := schema.ScoreResult{
		SeverityScore: 7,
		Details: schema.SeverityDetails{
			Doc: &schema.DocFeatures{OpenIssues: 2, BaseSeverityScore: 0.75},
		},
	}
	candidate := b.Build(schema.Component{ID: "comp:orphan"}, &noOwner, nil, schema.DependencyImpact{})
	require.Len(t, candidate.InformationGaps, 1)
	assert.Contains(t, candidate.InformationGaps[0].Description, "no linked owner")

	criticalNoDoc := schema.ScoreResult{
		SeverityScore: 7,
		Details: schema.SeverityDetails{
			Slack: &schema.SlackFeatures{MessageCount: 5, InCriticalChannel: true},
		},
	}
	candidate = b.Build(schema.Component{ID: "comp:core.payments", Team: "payments"}, &criticalNoDoc, nil, schema.DependencyImpact{})
	require.Len(t, candidate.InformationGaps, 1)
	assert.Contains(t, candidate.InformationGaps[0].Description, "no doc issue linkage")
}

// TestBuildSnapshotImmutability verifies each build yields a distinct
// snapshot ID and carries the snapshot marker.
func TestBuildSnapshotImmutability(t *testing.T) {
	b := testBuilder()
	result := schema.ScoreResult{SeverityScore: 7, WindowHours: 168}
	component := schema.Component{ID: "comp:core.payments", Team: "payments"}

	first := b.Build(component, &result, nil, schema.DependencyImpact{})
	second := b.Build(component, &result, nil, schema.DependencyImpact{})

	assert.NotEmpty(t, first.SnapshotID)
	assert.NotEqual(t, first.SnapshotID, second.SnapshotID)
	assert.Equal(t, "true", first.Metadata[schema.SnapshotMetadataKey])
	assert.Equal(t, "168", first.Metadata["window_hours"])
	assert.Equal(t, aggNow, first.CreatedAt)
}

func TestDocStatus(t *testing.T) {
	tests := []struct {
		name     string
		details  schema.SeverityDetails
		severity string
	}{
		{"no doc data", schema.SeverityDetails{}, "unknown"},
		{"critical", schema.SeverityDetails{Doc: &schema.DocFeatures{OpenIssues: 1, BaseSeverityScore: 1.0}}, "critical"},
		{"high", schema.SeverityDetails{Doc: &schema.DocFeatures{OpenIssues: 1, BaseSeverityScore: 0.75}}, "high"},
		{"moderate", schema.SeverityDetails{Doc: &schema.DocFeatures{OpenIssues: 3, BaseSeverityScore: 0.25}}, "moderate"},
		{"healthy", schema.SeverityDetails{Doc: &schema.DocFeatures{}}, "healthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := docStatus(&schema.ScoreResult{Details: tt.details})
			assert.Equal(t, tt.severity, status.Severity)
		})
	}
}
