package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
)

// Pipeline orchestrates one scoring run end to end: windowed aggregation
// across all sources, drift estimation, score composition, impact walking
// and incident candidate promotion. Each run is a new snapshot; the pipeline
// never partially re-runs as new signals trickle in.
type Pipeline struct {
	store    contract.GraphStore
	cfg      *contract.Config
	registry *AggregatorRegistry
	composer *Composer
	drift    *DriftEstimator
	walker   *ImpactWalker
	builder  *IncidentBuilder

	// Now is the run clock; overridable in tests.
	Now func() time.Time
}

// NewPipeline wires the engine components from a validated config.
func NewPipeline(store contract.GraphStore, cfg *contract.Config) *Pipeline {
	p := &Pipeline{
		store:    store,
		cfg:      cfg,
		registry: NewAggregatorRegistry(store, cfg.HalfLifeHours),
		composer: NewComposer(cfg.SourceWeights),
		drift:    NewDriftEstimator(cfg.DriftMatchThreshold),
		walker:   NewImpactWalker(store),
		builder: NewIncidentBuilder(cfg.IncidentThreshold, cfg.DissatisfactionThreshold,
			cfg.EvidencePerSource, cfg.HalfLifeHours),
		Now: time.Now,
	}
	p.drift.EmbedTimeout = cfg.EmbedTimeout
	return p
}

// SetEmbedder installs an optional remote embedder for drift estimation.
func (p *Pipeline) SetEmbedder(e contract.Embedder) {
	p.drift.Embedder = e
}

// SetClock pins the pipeline and its sub-components to a fixed clock.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.Now = now
	p.registry.Now = now
	p.composer.Now = now
	p.builder.Now = now
}

// ScoreComponent computes the full ScoreResult for one component. Aggregation
// runs in parallel across sources and completes (or fails soft) before
// composition starts.
func (p *Pipeline) ScoreComponent(ctx context.Context, componentID string) (schema.ScoreResult, error) {
	component, err := p.store.GetComponent(ctx, componentID)
	if err != nil {
		return schema.ScoreResult{}, fmt.Errorf("unknown component %s: %w", componentID, err)
	}

	windowHours := p.cfg.WindowHours()
	features := p.registry.CollectFeatures(ctx, componentID, windowHours)
	pairs := p.driftPairs(ctx, componentID)

	return p.composer.ComposeScores(component, features, pairs), nil
}

// driftPairs measures doc-vs-slack and doc-vs-git drift from the component's
// in-window signals. Unmeasurable pairs are dropped, never zero-filled.
func (p *Pipeline) driftPairs(ctx context.Context, componentID string) []schema.SemanticPair {
	since := p.Now().Add(-p.cfg.Window)
	signals, err := p.store.SignalsForComponent(ctx, componentID, "", since)
	if err != nil {
		contract.LogWarn("drift estimation skipped", err)
		return nil
	}

	canonical, liveSlack, liveGit := DriftPools(signals)
	var pairs []schema.SemanticPair
	if pair := p.drift.ComputeDrift(ctx, "doc_vs_slack", canonical, liveSlack); pair != nil {
		pairs = append(pairs, *pair)
	}
	if pair := p.drift.ComputeDrift(ctx, "doc_vs_git", canonical, liveGit); pair != nil {
		pairs = append(pairs, *pair)
	}
	return pairs
}

// Leaderboard scores every known component using a bounded worker pool and
// returns them ordered by dissatisfaction, severity breaking ties, truncated
// to the configured result limit.
func (p *Pipeline) Leaderboard(ctx context.Context) ([]schema.ScoreResult, error) {
	components, err := p.store.ListComponents(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing components: %w", err)
	}

	results := p.scoreAll(ctx, components)
	sort.Slice(results, func(i, j int) bool {
		if results[i].DissatisfactionScore != results[j].DissatisfactionScore {
			return results[i].DissatisfactionScore > results[j].DissatisfactionScore
		}
		if results[i].SeverityScore != results[j].SeverityScore {
			return results[i].SeverityScore > results[j].SeverityScore
		}
		return results[i].ComponentID < results[j].ComponentID
	})

	if limit := p.cfg.ResultLimit; limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// scoreAll fans component scoring out over the worker pool.
func (p *Pipeline) scoreAll(ctx context.Context, components []schema.Component) []schema.ScoreResult {
	workers := p.cfg.Workers
	if workers <= 0 {
		workers = contract.DefaultWorkers
	}

	jobs := make(chan schema.Component)
	results := make([]schema.ScoreResult, 0, len(components))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for component := range jobs {
				result, err := p.ScoreComponent(ctx, component.ID)
				if err != nil {
					contract.LogWarn("scoring skipped", err)
					continue
				}
				mu.Lock()
				results = append(results, result)
				mu.Unlock()
			}
		}()
	}
	for _, component := range components {
		jobs <- component
	}
	close(jobs)
	wg.Wait()

	return results
}

// RunIncidentScan performs a full scoring run over every component, promotes
// the ones over threshold and persists their candidate snapshots. The run
// itself is tracked in the store for auditability.
func (p *Pipeline) RunIncidentScan(ctx context.Context) ([]schema.IncidentCandidate, error) {
	start := p.Now()
	runID, err := p.store.BeginRun(ctx, start, map[string]any{
		"window_hours":       p.cfg.WindowHours(),
		"incident_threshold": p.cfg.IncidentThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("starting run: %w", err)
	}

	components, err := p.store.ListComponents(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing components: %w", err)
	}

	since := start.Add(-p.cfg.Window)
	var candidates []schema.IncidentCandidate
	for _, component := range components {
		result, err := p.ScoreComponent(ctx, component.ID)
		if err != nil {
			contract.LogWarn("scoring skipped", err)
			continue
		}
		if !p.builder.ShouldPromote(&result) {
			continue
		}

		signals, err := p.store.SignalsForComponent(ctx, component.ID, "", since)
		if err != nil {
			contract.LogWarn("evidence collection degraded", err)
		}
		impact := p.walker.WalkImpact(ctx, component.ID, p.cfg.ImpactMaxDepth)

		candidate := p.builder.Build(component, &result, signals, impact)
		if err := p.store.SaveCandidate(ctx, candidate); err != nil {
			return nil, fmt.Errorf("saving candidate for %s: %w", component.ID, err)
		}
		candidates = append(candidates, candidate)
	}

	if err := p.store.EndRun(ctx, runID, p.Now(), len(components)); err != nil {
		contract.LogWarn("run bookkeeping failed", err)
	}
	return candidates, nil
}

// WalkImpact exposes the dependency walker for the CLI and API layers.
func (p *Pipeline) WalkImpact(ctx context.Context, componentID string, maxDepth int) schema.DependencyImpact {
	if maxDepth <= 0 {
		maxDepth = p.cfg.ImpactMaxDepth
	}
	return p.walker.WalkImpact(ctx, componentID, maxDepth)
}

// SignalsInWindow returns a component's signals inside the configured window.
func (p *Pipeline) SignalsInWindow(ctx context.Context, componentID string, source schema.Source) ([]schema.ActivitySignal, error) {
	since := p.Now().Add(-p.cfg.Window)
	return p.store.SignalsForComponent(ctx, componentID, source, since)
}
