package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/crtscope/crtscope/schema"
)

// divergenceGap is the sub-score spread beyond which two sources are
// considered to disagree about urgency.
const divergenceGap = 0.5

// IncidentBuilder promotes scored components into incident candidates. It is
// the only writer of IncidentCandidate values; candidates are immutable
// snapshots and a re-run with different numbers produces a new snapshot.
type IncidentBuilder struct {
	incidentThreshold float64
	dissatThreshold   float64
	evidencePerSource int
	halfLives         map[schema.Source]float64

	// Now and NewSnapshotID are overridable in tests.
	Now           func() time.Time
	NewSnapshotID func() string
}

// NewIncidentBuilder returns a builder with validated thresholds.
func NewIncidentBuilder(incidentThreshold, dissatThreshold float64, evidencePerSource int, halfLives map[schema.Source]float64) *IncidentBuilder {
	return &IncidentBuilder{
		incidentThreshold: incidentThreshold,
		dissatThreshold:   dissatThreshold,
		evidencePerSource: evidencePerSource,
		halfLives:         halfLives,
		Now:               time.Now,
		NewSnapshotID:     uuid.NewString,
	}
}

// ShouldPromote applies the threshold check: a component is a candidate when
// its severity reaches the incident threshold or its dissatisfaction reaches
// its own threshold. Everything else is discarded.
func (b *IncidentBuilder) ShouldPromote(result *schema.ScoreResult) bool {
	if result.NoSignals {
		return false
	}
	return result.SeverityScore >= b.incidentThreshold ||
		result.DissatisfactionScore >= b.dissatThreshold
}

// Build assembles the full candidate snapshot from the score, the window's
// signals and the dependency impact.
func (b *IncidentBuilder) Build(component schema.Component, result *schema.ScoreResult, signals []schema.ActivitySignal, impact schema.DependencyImpact) schema.IncidentCandidate {
	now := b.Now()
	evidence := b.selectEvidence(signals, now)

	evidenceIDs := make([]string, len(evidence))
	for i, item := range evidence {
		evidenceIDs[i] = item.SignalID
	}

	entity := schema.IncidentEntity{
		ID:                     component.ID,
		Name:                   component.Name,
		ActivitySignals:        activityMap(result),
		DissatisfactionSignals: dissatisfactionMap(result),
		DocStatus:              docStatus(result),
		DependencySummary:      SummarizeImpact(&impact),
		SuggestedAction:        suggestedAction(result, &impact),
		EvidenceIDs:            evidenceIDs,
	}

	return schema.IncidentCandidate{
		SnapshotID:           b.NewSnapshotID(),
		ComponentID:          component.ID,
		ComponentName:        component.Name,
		CreatedAt:            now,
		SeverityScore:        result.SeverityScore,
		SeverityScore100:     result.SeverityScore100,
		ActivityScore:        result.ActivityScore,
		DissatisfactionScore: result.DissatisfactionScore,
		Breakdown:            result.Breakdown,
		Weights:              result.Weights,
		Contributions:        result.Contributions,
		IncidentEntities:     []schema.IncidentEntity{entity},
		DependencyImpact:     impact,
		Evidence:             evidence,
		Divergence:           b.computeDivergence(result),
		InformationGaps:      b.findInformationGaps(component, result),
		SuggestedAction:      entity.SuggestedAction,
		Metadata: map[string]string{
			schema.SnapshotMetadataKey: "true",
			"window_hours":             fmt.Sprintf("%g", result.WindowHours),
		},
	}
}

// selectEvidence picks the top-N signals per source, ranked by decayed weight
// with recency breaking ties.
func (b *IncidentBuilder) selectEvidence(signals []schema.ActivitySignal, now time.Time) []schema.EvidenceItem {
	perSource := make(map[schema.Source][]schema.EvidenceItem)
	for i := range signals {
		sig := &signals[i]
		perSource[sig.Source] = append(perSource[sig.Source], schema.EvidenceItem{
			SignalID:      sig.ID,
			Source:        sig.Source,
			Title:         sig.Title,
			URL:           sig.URL,
			DecayedWeight: SignalDecayedWeight(sig, now, b.halfLives),
			Timestamp:     sig.Timestamp,
		})
	}

	limit := b.evidencePerSource
	if limit <= 0 {
		limit = 3
	}

	var evidence []schema.EvidenceItem
	for _, source := range schema.AllSources {
		items := perSource[source]
		sort.Slice(items, func(i, j int) bool {
			if items[i].DecayedWeight != items[j].DecayedWeight {
				return items[i].DecayedWeight > items[j].DecayedWeight
			}
			return items[i].Timestamp.After(items[j].Timestamp)
		})
		if len(items) > limit {
			items = items[:limit]
		}
		evidence = append(evidence, items...)
	}
	return evidence
}

// computeDivergence compares every pair of active sources and records the
// ones that disagree about urgency, e.g. Slack screaming while docs show no
// severity at all.
func (b *IncidentBuilder) computeDivergence(result *schema.ScoreResult) schema.Divergence {
	var div schema.Divergence
	for i, s1 := range schema.AllSources {
		sub1, ok1 := result.Breakdown[s1]
		if !ok1 {
			continue
		}
		for _, s2 := range schema.AllSources[i+1:] {
			sub2, ok2 := result.Breakdown[s2]
			if !ok2 {
				continue
			}
			gap := sub1 - sub2
			if gap < 0 {
				gap = -gap
			}
			if gap < divergenceGap {
				continue
			}
			higher, lower := s1, s2
			if sub2 > sub1 {
				higher, lower = s2, s1
			}
			div.Items = append(div.Items, schema.DivergenceItem{
				Source1: s1,
				Source2: s2,
				Description: fmt.Sprintf("%s signals high urgency (%.2f) while %s shows little (%.2f)",
					higher, result.Breakdown[higher], lower, result.Breakdown[lower]),
			})
		}
	}
	return div
}

// findInformationGaps flags evidence that is structurally missing rather
// than merely zero.
func (b *IncidentBuilder) findInformationGaps(component schema.Component, result *schema.ScoreResult) []schema.InformationGap {
	var gaps []schema.InformationGap

	if result.Details.Doc != nil && component.Team == "" {
		gaps = append(gaps, schema.InformationGap{
			EntityID:    component.ID,
			Description: "flagged doc issues but the component has no linked owner",
		})
	}
	if result.Details.Slack != nil && result.Details.Slack.InCriticalChannel && result.Details.Doc == nil {
		gaps = append(gaps, schema.InformationGap{
			EntityID:    component.ID,
			Description: "critical-channel activity with no doc issue linkage",
		})
	}
	if result.Details.Support != nil && result.Details.Support.EscalatedCases > 0 && result.Details.Git == nil {
		gaps = append(gaps, schema.InformationGap{
			EntityID:    component.ID,
			Description: "escalated support cases with no recent git activity",
		})
	}
	return gaps
}

func docStatus(result *schema.ScoreResult) schema.DocStatus {
	doc := result.Details.Doc
	if doc == nil {
		return schema.DocStatus{Severity: "unknown", Reason: "no doc signals in window"}
	}
	switch {
	case doc.BaseSeverityScore >= 1.0:
		return schema.DocStatus{Severity: "critical", Reason: fmt.Sprintf("%d open doc issues", doc.OpenIssues)}
	case doc.BaseSeverityScore >= 0.75:
		return schema.DocStatus{Severity: "high", Reason: fmt.Sprintf("%d open doc issues", doc.OpenIssues)}
	case doc.OpenIssues > 0:
		return schema.DocStatus{Severity: "moderate", Reason: fmt.Sprintf("%d open doc issues", doc.OpenIssues)}
	default:
		return schema.DocStatus{Severity: "healthy"}
	}
}

func suggestedAction(result *schema.ScoreResult, impact *schema.DependencyImpact) string {
	switch {
	case result.Details.Support != nil && result.Details.Support.EscalatedCases > 0:
		return "triage escalated support cases first, then update the runbook"
	case result.Details.Slack != nil && result.Details.Slack.InCriticalChannel:
		return "acknowledge in the critical channel and assign an owner"
	case impact.AffectedDocCount > 0:
		return fmt.Sprintf("review %d dependent docs for staleness", impact.AffectedDocCount)
	default:
		return "review recent changes and confirm severity with the owning team"
	}
}

func activityMap(result *schema.ScoreResult) map[schema.Source]float64 {
	out := make(map[schema.Source]float64, 2)
	if result.Details.Git != nil {
		out[schema.GitSource] = float64(result.Details.Git.PRCount + result.Details.Git.CommitCount)
	}
	if result.Details.Slack != nil {
		out[schema.SlackSource] = float64(result.Details.Slack.MessageCount)
	}
	return out
}

func dissatisfactionMap(result *schema.ScoreResult) map[schema.Source]float64 {
	out := make(map[schema.Source]float64, 3)
	if result.Details.Slack != nil {
		out[schema.SlackSource] = float64(result.Details.Slack.ComplaintCount)
	}
	if result.Details.Support != nil {
		out[schema.SupportSource] = float64(result.Details.Support.EscalatedCases)
	}
	if result.Details.Doc != nil {
		out[schema.DocSource] = float64(result.Details.Doc.OpenIssues)
	}
	return out
}
