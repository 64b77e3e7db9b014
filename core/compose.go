package core

import (
	"time"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
)

// Sub-score rule table. Coefficients are saturating: a burst of any single
// feature tops out at 1.0 instead of dominating the composite.
const (
	gitPRScoreFactor       = 0.15
	gitCommitScoreFactor   = 0.05
	gitBreakingScoreFactor = 0.20
	gitDocEditScoreFactor  = 0.05

	slackMessageScoreFactor   = 0.04
	slackComplaintScoreFactor = 0.20
	slackCriticalChannelBonus = 0.20

	supportCaseScoreFactor       = 0.10
	supportEscalationScoreFactor = 0.25
	supportSeverityScoreFactor   = 0.50

	docBaseSeverityShare = 0.6
	docImpactLevelShare  = 0.4
)

// Count-formula coefficients for the activity and dissatisfaction scores.
const (
	activityGitWeight     = 1.0
	activitySlackWeight   = 0.4
	activityDocWeight     = 0.2
	dissatComplaintWeight = 0.9
	dissatDocWeight       = 1.0
)

// Composer turns per-source feature sets and drift pairs into the composite
// scores. It is a pure function of its inputs and safe for concurrent use.
type Composer struct {
	weights map[schema.Source]float64

	// Now is the clock stamped onto results; overridable in tests.
	Now func() time.Time
}

// NewComposer returns a composer using the given source weights. The weights
// are expected to be validated already (sum to 1.0 across all sources).
func NewComposer(weights map[schema.Source]float64) *Composer {
	return &Composer{weights: weights, Now: time.Now}
}

// ComposeScores combines feature sets and semantic drift pairs into one
// ScoreResult. Weights are renormalized across the sources that actually
// produced data, so an unavailable source never silently deflates severity.
//
// When no source produced any data, all scores are 0 and the breakdown map
// stays empty; a component whose sources were measured and summed to zero
// gets explicit zero entries instead. Consumers rely on that distinction.
func (c *Composer) ComposeScores(component schema.Component, features map[schema.Source]schema.FeatureSet, pairs []schema.SemanticPair) schema.ScoreResult {
	result := schema.ScoreResult{
		ComponentID:   component.ID,
		ComponentName: component.Name,
		Breakdown:     map[schema.Source]float64{},
		Weights:       map[schema.Source]float64{},
		Contributions: map[schema.Source]float64{},
		ComputedAt:    c.Now(),
	}

	var active []schema.Source
	var weightSum float64
	for _, source := range schema.AllSources {
		fs, ok := features[source]
		if !ok {
			continue
		}
		if fs.WindowHours > result.WindowHours {
			result.WindowHours = fs.WindowHours
		}
		if fs.Unavailable || fs.Empty() {
			continue
		}
		active = append(active, source)
		weightSum += c.weights[source]
	}

	if len(active) == 0 {
		result.NoSignals = true
		result.Details.Drift = pairs
		return result
	}

	for _, source := range active {
		fs := features[source]
		sub := subScore(&fs)
		weight := c.weights[source]
		if weightSum > 0 {
			weight /= weightSum
		}
		result.Breakdown[source] = sub
		result.Weights[source] = weight
		result.Contributions[source] = sub * weight
	}

	var contributionSum float64
	for _, contribution := range result.Contributions {
		contributionSum += contribution
	}
	result.SeverityScore = contract.Clamp01(contributionSum) * 10
	result.SeverityScore100 = result.SeverityScore * 10

	result.ActivityScore = ActivityScore(features)
	result.DissatisfactionScore = DissatisfactionScore(features)

	result.Details = schema.SeverityDetails{Drift: pairs}
	for _, source := range active {
		fs := features[source]
		switch source {
		case schema.GitSource:
			result.Details.Git = fs.Git
		case schema.SlackSource:
			result.Details.Slack = fs.Slack
		case schema.SupportSource:
			result.Details.Support = fs.Support
		case schema.DocSource:
			result.Details.Doc = fs.Doc
		}
	}
	return result
}

// subScore maps one feature set onto [0,1].
func subScore(fs *schema.FeatureSet) float64 {
	switch fs.Source {
	case schema.GitSource:
		if fs.Git == nil {
			return 0
		}
		return contract.Clamp01(
			gitPRScoreFactor*float64(fs.Git.PRCount) +
				gitCommitScoreFactor*float64(fs.Git.CommitCount) +
				gitBreakingScoreFactor*float64(fs.Git.BreakingLabelCount) +
				gitDocEditScoreFactor*float64(fs.Git.DocEditCount))

	case schema.SlackSource:
		if fs.Slack == nil {
			return 0
		}
		score := slackMessageScoreFactor*float64(fs.Slack.MessageCount) +
			slackComplaintScoreFactor*float64(fs.Slack.ComplaintCount)
		if fs.Slack.InCriticalChannel {
			score += slackCriticalChannelBonus
		}
		return contract.Clamp01(score)

	case schema.SupportSource:
		if fs.Support == nil {
			return 0
		}
		return contract.Clamp01(
			supportCaseScoreFactor*float64(fs.Support.OpenCases) +
				supportEscalationScoreFactor*float64(fs.Support.EscalatedCases) +
				supportSeverityScoreFactor*fs.Support.AvgSeverity)

	case schema.DocSource:
		if fs.Doc == nil {
			return 0
		}
		return contract.Clamp01(
			docBaseSeverityShare*fs.Doc.BaseSeverityScore +
				docImpactLevelShare*fs.Doc.ImpactLevelScore)

	default:
		return 0
	}
}

// ActivityScore computes the count-based activity score,
// 1.0*gitEvents + 0.4*slackThreads + 0.2*docPressure, clamped to [0,100].
func ActivityScore(features map[schema.Source]schema.FeatureSet) float64 {
	gitEvents := float64(features[schema.GitSource].SignalCount)

	var slackThreads float64
	if slack := features[schema.SlackSource].Slack; slack != nil {
		slackThreads = float64(slack.ThreadCount)
	}

	return contract.Clamp100(
		activityGitWeight*gitEvents +
			activitySlackWeight*slackThreads +
			activityDocWeight*DocPressure(features))
}

// DissatisfactionScore computes 0.9*slackComplaints + 1.0*docPressure,
// clamped to [0,100]. When there are no Slack complaints, a floor of
// min(docPressure, 1) guarantees that pure doc pressure still registers.
func DissatisfactionScore(features map[schema.Source]schema.FeatureSet) float64 {
	var complaints float64
	if slack := features[schema.SlackSource].Slack; slack != nil {
		complaints = float64(slack.ComplaintCount)
	}
	docPressure := DocPressure(features)

	score := dissatComplaintWeight*complaints + dissatDocWeight*docPressure
	if complaints == 0 {
		if floor := min(docPressure, 1); score < floor {
			score = floor
		}
	}
	return contract.Clamp100(score)
}

// DocPressure is the aggregate measure of outstanding severe doc issues:
// open issue count scaled by the blended severity/impact level.
func DocPressure(features map[schema.Source]schema.FeatureSet) float64 {
	doc := features[schema.DocSource].Doc
	if doc == nil {
		return 0
	}
	blend := docBaseSeverityShare*doc.BaseSeverityScore + docImpactLevelShare*doc.ImpactLevelScore
	return float64(doc.OpenIssues) * blend
}
