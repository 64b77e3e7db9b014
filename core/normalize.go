// Package core implements the activity and dissatisfaction scoring engine:
// signal normalization, per-source aggregation, semantic drift estimation,
// score composition, dependency impact walking and incident candidate
// assembly.
package core

import (
	"math"
	"time"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
)

// Raw weight rule table. Tunable caps so a reaction storm or a giant PR
// cannot dominate a whole component's score on its own.
const (
	slackBaseWeight     = 1.0
	slackReactionFactor = 0.3
	slackWeightCap      = 4.0
	slackComplaintBonus = 0.5

	gitPRWeight     = 1.8
	gitCommitWeight = 1.0
	gitDocEditBonus = 0.5
	gitChurnFactor  = 0.001 // per changed line
	gitChurnCap     = 1.0

	supportBaseWeight      = 1.5
	supportEscalationBonus = 1.0

	docIssueBaseWeight = 1.0
)

// Normalizer converts raw per-source events into ActivitySignals. It never
// fetches anything itself; events arrive already fetched by an ingestion
// connector.
type Normalizer struct{}

// NewNormalizer returns a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize converts one raw event into an ActivitySignal with a
// deterministic ID, so re-ingesting the same event merges instead of
// duplicating. Events missing a timestamp or component linkage fail with
// MalformedEventError; the caller decides whether to skip or abort the batch.
func (n *Normalizer) Normalize(raw schema.RawEvent) (schema.ActivitySignal, error) {
	if raw.Timestamp.IsZero() {
		return schema.ActivitySignal{}, &contract.MalformedEventError{
			Source: raw.Source, Key: raw.NaturalKey, Field: "timestamp",
		}
	}
	if len(raw.ComponentIDs) == 0 {
		return schema.ActivitySignal{}, &contract.MalformedEventError{
			Source: raw.Source, Key: raw.NaturalKey, Field: "component linkage",
		}
	}
	if _, ok := schema.ValidSources[raw.Source]; !ok {
		return schema.ActivitySignal{}, &contract.MalformedEventError{
			Source: raw.Source, Key: raw.NaturalKey, Field: "source",
		}
	}

	componentIDs := make([]string, len(raw.ComponentIDs))
	for i, id := range raw.ComponentIDs {
		componentIDs[i] = schema.ComponentID(id)
	}

	return schema.ActivitySignal{
		ID:              schema.SignalID(raw.Source, raw.Kind, raw.NaturalKey),
		Source:          raw.Source,
		Kind:            raw.Kind,
		NaturalKey:      raw.NaturalKey,
		ComponentIDs:    componentIDs,
		RawWeight:       rawWeightFor(raw),
		Timestamp:       raw.Timestamp.UTC(),
		Actor:           raw.Actor,
		Title:           raw.Title,
		Body:            raw.Body,
		URL:             raw.URL,
		Labels:          raw.Labels,
		Channel:         raw.Channel,
		ThreadID:        raw.ThreadID,
		Reactions:       raw.Reactions,
		Complaint:       raw.Complaint,
		CriticalChannel: raw.CriticalChannel,
		LinesChanged:    raw.LinesChanged,
		Escalated:       raw.Escalated,
		DocEdit:         raw.DocEdit,
		Severity:        raw.Severity,
		ImpactLevel:     raw.ImpactLevel,
	}, nil
}

// rawWeightFor applies the per-source severity/intensity rule table.
func rawWeightFor(raw schema.RawEvent) float64 {
	switch raw.Source {
	case schema.SlackSource:
		w := slackBaseWeight + slackReactionFactor*float64(raw.Reactions)
		if w > slackWeightCap {
			w = slackWeightCap
		}
		if raw.Complaint {
			w += slackComplaintBonus
		}
		return w

	case schema.GitSource:
		var w float64
		switch raw.Kind {
		case "pr":
			w = gitPRWeight
		default:
			w = gitCommitWeight
		}
		churn := gitChurnFactor * float64(raw.LinesChanged)
		if churn > gitChurnCap {
			churn = gitChurnCap
		}
		w += churn
		if raw.DocEdit {
			w += gitDocEditBonus
		}
		return w

	case schema.SupportSource:
		w := supportBaseWeight + schema.SeverityLevelScore(raw.Severity)
		if raw.Escalated {
			w += supportEscalationBonus
		}
		return w

	case schema.DocSource:
		return docIssueBaseWeight + schema.SeverityLevelScore(raw.Severity)

	default:
		return 1.0
	}
}

// DecayedWeight applies exponential time decay to a raw weight:
// raw * exp(-ln2 * ageHours / halfLifeHours). At age zero the decayed weight
// equals the raw weight, and it is strictly non-increasing with age. The
// value is always recomputed at read time and never persisted.
func DecayedWeight(rawWeight, ageHours, halfLifeHours float64) float64 {
	if halfLifeHours <= 0 {
		return rawWeight
	}
	if ageHours < 0 {
		ageHours = 0
	}
	return rawWeight * math.Exp(-math.Ln2*ageHours/halfLifeHours)
}

// SignalDecayedWeight computes a signal's decayed weight at a given time
// using the per-source half-life map.
func SignalDecayedWeight(s *schema.ActivitySignal, now time.Time, halfLives map[schema.Source]float64) float64 {
	return DecayedWeight(s.RawWeight, s.AgeHours(now), halfLives[s.Source])
}
