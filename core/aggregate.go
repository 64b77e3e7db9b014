package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
)

// Aggregator produces the fixed-shape rollup for one source. Invocations
// share no mutable state, so aggregators may run in parallel across sources
// and components.
type Aggregator interface {
	Source() schema.Source
	Aggregate(ctx context.Context, componentID string, windowHours float64) (schema.FeatureSet, error)
}

// AggregatorRegistry holds the closed set of source aggregators for a run.
// It is an explicit, constructed object passed by reference, never a
// process-wide singleton, so parallel runs can use isolated configs.
type AggregatorRegistry struct {
	aggregators map[schema.Source]Aggregator
	order       []schema.Source

	// Now is the clock used for windowing and decay; overridable in tests.
	Now func() time.Time
}

// NewAggregatorRegistry constructs a registry covering all supported sources.
func NewAggregatorRegistry(store contract.GraphStore, halfLives map[schema.Source]float64) *AggregatorRegistry {
	reg := &AggregatorRegistry{
		aggregators: make(map[schema.Source]Aggregator, len(schema.AllSources)),
		Now:         time.Now,
	}
	for _, source := range schema.AllSources {
		reg.register(&sourceAggregator{
			source:    source,
			store:     store,
			halfLives: halfLives,
			now:       func() time.Time { return reg.Now() },
		})
	}
	return reg
}

func (r *AggregatorRegistry) register(agg Aggregator) {
	if _, exists := r.aggregators[agg.Source()]; !exists {
		r.order = append(r.order, agg.Source())
	}
	r.aggregators[agg.Source()] = agg
}

// Get returns the aggregator for a source.
func (r *AggregatorRegistry) Get(source schema.Source) (Aggregator, bool) {
	agg, ok := r.aggregators[source]
	return agg, ok
}

// Sources returns the registered sources in stable order.
func (r *AggregatorRegistry) Sources() []schema.Source {
	return r.order
}

// CollectFeatures runs every registered aggregator for one component, in
// parallel, and returns once all of them finished. The full-completion
// barrier matters: composition never sees a partially aggregated run.
//
// A failing source degrades to a zero-valued, Unavailable-flagged feature set
// with a warning log; it never propagates an error to the composer. Missing
// data therefore stays distinguishable from measured zero while aggregate
// scores remain computable.
func (r *AggregatorRegistry) CollectFeatures(ctx context.Context, componentID string, windowHours float64) map[schema.Source]schema.FeatureSet {
	features := make(map[schema.Source]schema.FeatureSet, len(r.order))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, source := range r.order {
		wg.Add(1)
		go func(source schema.Source) {
			defer wg.Done()
			fs, err := r.aggregators[source].Aggregate(ctx, componentID, windowHours)
			if err != nil {
				contract.LogWarn("source aggregation degraded to zero", &contract.SourceUnavailableError{Source: source, Err: err})
				fs = schema.FeatureSet{
					Source:      source,
					ComponentID: componentID,
					WindowHours: windowHours,
					Unavailable: true,
				}
			}
			mu.Lock()
			features[source] = fs
			mu.Unlock()
		}(source)
	}
	wg.Wait()
	return features
}

// sourceAggregator is the shared windowing and decay machinery behind all
// four sources; only the rollup step differs per source.
type sourceAggregator struct {
	source    schema.Source
	store     contract.GraphStore
	halfLives map[schema.Source]float64
	now       func() time.Time
}

func (a *sourceAggregator) Source() schema.Source { return a.source }

// Aggregate returns the windowed rollup for one component. Only signals with
// timestamp >= now-window are included, decay is applied per signal before
// summation, and duplicate natural events (e.g. an edited Slack message)
// resolve latest-timestamp-wins.
func (a *sourceAggregator) Aggregate(ctx context.Context, componentID string, windowHours float64) (schema.FeatureSet, error) {
	now := a.now()
	since := now.Add(-time.Duration(windowHours * float64(time.Hour)))

	signals, err := a.store.SignalsForComponent(ctx, componentID, a.source, since)
	if err != nil {
		return schema.FeatureSet{}, err
	}

	signals = dedupeByNaturalKey(signals)

	fs := schema.FeatureSet{
		Source:      a.source,
		ComponentID: componentID,
		WindowHours: windowHours,
	}
	roll := newRollState()
	for i := range signals {
		sig := &signals[i]
		if sig.Timestamp.Before(since) {
			continue
		}
		fs.SignalCount++
		fs.DecayedSum += SignalDecayedWeight(sig, now, a.halfLives)
		if sig.Timestamp.After(fs.Latest) {
			fs.Latest = sig.Timestamp
		}
		a.roll(&fs, sig, roll)
	}
	return fs, nil
}

// rollState tracks per-call distinct sets so the exported rollup shapes stay
// plain counters.
type rollState struct {
	authors map[string]struct{}
	threads map[string]struct{}
}

func newRollState() *rollState {
	return &rollState{
		authors: make(map[string]struct{}),
		threads: make(map[string]struct{}),
	}
}

// roll folds one in-window signal into the source-specific feature struct.
func (a *sourceAggregator) roll(fs *schema.FeatureSet, sig *schema.ActivitySignal, state *rollState) {
	switch a.source {
	case schema.GitSource:
		if fs.Git == nil {
			fs.Git = &schema.GitFeatures{}
		}
		switch sig.Kind {
		case "pr":
			fs.Git.PRCount++
		default:
			fs.Git.CommitCount++
		}
		if sig.DocEdit {
			fs.Git.DocEditCount++
		}
		for _, label := range sig.Labels {
			if label == "breaking" || label == "breaking-change" {
				fs.Git.BreakingLabelCount++
			}
		}
		fs.Git.ChurnTotal += sig.LinesChanged
		if sig.Actor != "" {
			state.authors[sig.Actor] = struct{}{}
		}
		fs.Git.DistinctAuthors = len(state.authors)

	case schema.SlackSource:
		if fs.Slack == nil {
			fs.Slack = &schema.SlackFeatures{}
		}
		fs.Slack.MessageCount++
		if sig.ThreadID != "" {
			state.threads[sig.ThreadID] = struct{}{}
		}
		fs.Slack.ThreadCount = len(state.threads)
		fs.Slack.ReactionTotal += sig.Reactions
		if sig.Complaint {
			fs.Slack.ComplaintCount++
		}
		if sig.CriticalChannel {
			fs.Slack.InCriticalChannel = true
		}
		if sig.Actor != "" {
			state.authors[sig.Actor] = struct{}{}
		}
		fs.Slack.UniqueAuthors = len(state.authors)

	case schema.SupportSource:
		if fs.Support == nil {
			fs.Support = &schema.SupportFeatures{}
		}
		fs.Support.OpenCases++
		if sig.Escalated {
			fs.Support.EscalatedCases++
		}
		// Running mean of mapped severity.
		n := float64(fs.Support.OpenCases)
		fs.Support.AvgSeverity += (schema.SeverityLevelScore(sig.Severity) - fs.Support.AvgSeverity) / n

	case schema.DocSource:
		if fs.Doc == nil {
			fs.Doc = &schema.DocFeatures{}
		}
		fs.Doc.OpenIssues++
		if s := schema.SeverityLevelScore(sig.Severity); s > fs.Doc.BaseSeverityScore {
			fs.Doc.BaseSeverityScore = s
		}
		if s := schema.ImpactLevelScore(sig.ImpactLevel); s > fs.Doc.ImpactLevelScore {
			fs.Doc.ImpactLevelScore = s
		}
		if n := len(sig.ComponentIDs); n > fs.Doc.ComponentCount {
			fs.Doc.ComponentCount = n
		}
		fs.Doc.Labels = mergeLabels(fs.Doc.Labels, sig.Labels)
		if sig.Timestamp.After(fs.Doc.LastUpdated) {
			fs.Doc.LastUpdated = sig.Timestamp
		}
	}
}

// dedupeByNaturalKey collapses signals that reference the same natural event,
// keeping the most recent edit by timestamp, not by arrival order.
func dedupeByNaturalKey(signals []schema.ActivitySignal) []schema.ActivitySignal {
	byKey := make(map[string]schema.ActivitySignal, len(signals))
	for _, sig := range signals {
		key := string(sig.Source) + "|" + sig.Kind + "|" + sig.NaturalKey
		if existing, ok := byKey[key]; ok && !sig.Timestamp.After(existing.Timestamp) {
			continue
		}
		byKey[key] = sig
	}
	out := make([]schema.ActivitySignal, 0, len(byKey))
	for _, sig := range byKey {
		out = append(out, sig)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// mergeLabels unions labels preserving first-seen order.
func mergeLabels(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, l := range existing {
		seen[l] = struct{}{}
	}
	for _, l := range incoming {
		if _, ok := seen[l]; !ok {
			existing = append(existing, l)
			seen[l] = struct{}{}
		}
	}
	return existing
}
