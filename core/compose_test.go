package core

import (
	"testing"
	"time"

	"github.com/crtscope/crtscope/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testComposer() *Composer {
	c := NewComposer(schema.DefaultSourceWeights())
	c.Now = func() time.Time { return aggNow }
	return c
}

func gitOnlyFeatures(prs int) map[schema.Source]schema.FeatureSet {
	return map[schema.Source]schema.FeatureSet{
		schema.GitSource: {
			Source:      schema.GitSource,
			SignalCount: prs,
			DecayedSum:  float64(prs),
			Git:         &schema.GitFeatures{PRCount: prs},
		},
	}
}

// TestComposeGitOnlyDrivesSeverity verifies weight renormalization: with git
// as the only active source its renormalized weight is 1.0 and severity is
// its sub-score alone, scaled to the 0-10 range.
func TestComposeGitOnlyDrivesSeverity(t *testing.T) {
	c := testComposer()

	result := c.ComposeScores(schema.Component{ID: "comp:core.payments"}, gitOnlyFeatures(2), nil)

	require.Contains(t, result.Weights, schema.GitSource)
	assert.InDelta(t, 1.0, result.Weights[schema.GitSource], 1e-9)
	assert.InDelta(t, result.Breakdown[schema.GitSource]*10, result.SeverityScore, 1e-9)
	assert.NotContains(t, result.Breakdown, schema.SlackSource)
	assert.False(t, result.NoSignals)
}

// TestComposeExplainabilityRoundTrip verifies the invariant that lets a
// consumer reconstruct the score: severity == sum(contributions) * 10 and
// each contribution == breakdown * weight.
func TestComposeExplainabilityRoundTrip(t *testing.T) {
	c := testComposer()
	features := map[schema.Source]schema.FeatureSet{
		schema.GitSource: {
			Source: schema.GitSource, SignalCount: 3,
			Git: &schema.GitFeatures{PRCount: 2, CommitCount: 1, BreakingLabelCount: 1},
		},
		schema.SlackSource: {
			Source: schema.SlackSource, SignalCount: 5,
			Slack: &schema.SlackFeatures{MessageCount: 5, ComplaintCount: 2, InCriticalChannel: true},
		},
		schema.SupportSource: {
			Source: schema.SupportSource, SignalCount: 2,
			Support: &schema.SupportFeatures{OpenCases: 2, EscalatedCases: 1, AvgSeverity: 0.75},
		},
		schema.DocSource: {
			Source: schema.DocSource, SignalCount: 1,
			Doc: &schema.DocFeatures{OpenIssues: 1, BaseSeverityScore: 0.75, ImpactLevelScore: 0.5},
		},
	}

	result := c.ComposeScores(schema.Component{ID: "comp:core.payments"}, features, nil)

	var contributionSum, weightSum float64
	for source, contribution := range result.Contributions {
		assert.InDelta(t, result.Breakdown[source]*result.Weights[source], contribution, 1e-6)
		contributionSum += contribution
		weightSum += result.Weights[source]
	}
	assert.InDelta(t, 1.0, weightSum, 1e-6)
	assert.InDelta(t, contributionSum*10, result.SeverityScore, 1e-6)
	assert.InDelta(t, result.SeverityScore*10, result.SeverityScore100, 1e-6)
}

// TestComposeScoreBounds checks score clamping under extreme inputs.
func TestComposeScoreBounds(t *testing.T) {
	c := testComposer()
	features := map[schema.Source]schema.FeatureSet{
		schema.GitSource: {
			Source: schema.GitSource, SignalCount: 10000,
			Git: &schema.GitFeatures{PRCount: 5000, CommitCount: 5000, BreakingLabelCount: 500},
		},
		schema.SlackSource: {
			Source: schema.SlackSource, SignalCount: 10000,
			Slack: &schema.SlackFeatures{MessageCount: 10000, ThreadCount: 9000, ComplaintCount: 5000},
		},
	}

	result := c.ComposeScores(schema.Component{ID: "comp:busy"}, features, nil)

	assert.LessOrEqual(t, result.SeverityScore, 10.0)
	assert.LessOrEqual(t, result.ActivityScore, 100.0)
	assert.LessOrEqual(t, result.DissatisfactionScore, 100.0)
	assert.GreaterOrEqual(t, result.SeverityScore, 0.0)
}

// TestComposeNoDataVsMeasuredZero verifies the empty-breakdown contract: no
// data at all produces an empty map, while measured-but-zero sources produce
// explicit zero entries.
func TestComposeNoDataVsMeasuredZero(t *testing.T) {
	c := testComposer()

	noData := c.ComposeScores(schema.Component{ID: "comp:idle"}, map[schema.Source]schema.FeatureSet{}, nil)
	assert.True(t, noData.NoSignals)
	assert.Empty(t, noData.Breakdown)
	assert.Zero(t, noData.SeverityScore)

	// One slack message with nothing alarming about it: measured, near zero.
	measured := c.ComposeScores(schema.Component{ID: "comp:quiet"}, map[schema.Source]schema.FeatureSet{
		schema.SlackSource: {
			Source: schema.SlackSource, SignalCount: 1,
			Slack: &schema.SlackFeatures{MessageCount: 1},
		},
	}, nil)
	assert.False(t, measured.NoSignals)
	assert.Contains(t, measured.Breakdown, schema.SlackSource)
}

// TestComposeUnavailableSourceExcluded verifies that an Unavailable feature
// set neither contributes nor deflates the renormalized weights.
func TestComposeUnavailableSourceExcluded(t *testing.T) {
	c := testComposer()
	features := gitOnlyFeatures(2)
	features[schema.SlackSource] = schema.FeatureSet{
		Source: schema.SlackSource, Unavailable: true,
	}

	result := c.ComposeScores(schema.Component{ID: "comp:core.payments"}, features, nil)

	assert.NotContains(t, result.Breakdown, schema.SlackSource)
	assert.InDelta(t, 1.0, result.Weights[schema.GitSource], 1e-9)
}

// TestActivityScoreFourGitEvents reproduces the operational reference value:
// 4 git events, nothing else, over any window yields activity 4.0 exactly.
func TestActivityScoreFourGitEvents(t *testing.T) {
	c := testComposer()

	result := c.ComposeScores(schema.Component{ID: "comp:core.payments"}, gitOnlyFeatures(4), nil)

	assert.Equal(t, 4.0, result.ActivityScore)
}

func TestDissatisfactionDocFloor(t *testing.T) {
	// Pure doc pressure with no complaints must not round down to zero.
	features := map[schema.Source]schema.FeatureSet{
		schema.DocSource: {
			Source: schema.DocSource, SignalCount: 1,
			Doc: &schema.DocFeatures{OpenIssues: 1, BaseSeverityScore: 0.25, ImpactLevelScore: 0.0},
		},
	}

	score := DissatisfactionScore(features)
	docPressure := DocPressure(features)
	assert.Greater(t, score, 0.0)
	assert.GreaterOrEqual(t, score, min(docPressure, 1))
}

func TestDissatisfactionComplaintsDominant(t *testing.T) {
	features := map[schema.Source]schema.FeatureSet{
		schema.SlackSource: {
			Source: schema.SlackSource, SignalCount: 3,
			Slack: &schema.SlackFeatures{MessageCount: 3, ComplaintCount: 3},
		},
	}

	assert.InDelta(t, 2.7, DissatisfactionScore(features), 1e-9)
}

func TestComposeAttachesDriftPairs(t *testing.T) {
	c := testComposer()
	pairs := []schema.SemanticPair{{Pair: "doc_vs_slack", Cosine: 0.4, Drift: 0.6}}

	result := c.ComposeScores(schema.Component{ID: "comp:core.payments"}, gitOnlyFeatures(1), pairs)

	require.Len(t, result.Details.Drift, 1)
	assert.Equal(t, "doc_vs_slack", result.Details.Drift[0].Pair)
}
