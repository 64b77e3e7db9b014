// Package sched runs periodic incident scans on a cron schedule. It wraps
// the pipeline's scan so candidates accumulate as append-only snapshots
// without anyone running the CLI.
package sched

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
)

// Scanner is the slice of the pipeline the scheduler drives.
type Scanner interface {
	RunIncidentScan(ctx context.Context) ([]schema.IncidentCandidate, error)
}

// Scheduler triggers incident scans on a cron spec with seconds precision.
type Scheduler struct {
	scanner Scanner
	spec    string
	cron    *cron.Cron

	// OnScan, when set, receives the result of every scan. Used by the
	// serve command to invalidate caches and by tests.
	OnScan func(candidates []schema.IncidentCandidate, err error)
}

// New returns a Scheduler for the given cron spec.
func New(scanner Scanner, spec string) *Scheduler {
	return &Scheduler{
		scanner: scanner,
		spec:    spec,
		cron:    cron.New(cron.WithSeconds()),
	}
}

// Start registers the scan job and starts the cron loop. The returned error
// covers spec parsing only; scan failures are logged per run.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.runScan(ctx) }); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.spec, err)
	}
	contract.LogInfo(fmt.Sprintf("incident scan scheduled (%s)", s.spec))
	s.cron.Start()
	return nil
}

// Stop halts the cron loop, waiting for a running scan to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// runScan performs one scan. A failing scan never stops the schedule.
func (s *Scheduler) runScan(ctx context.Context) {
	candidates, err := s.scanner.RunIncidentScan(ctx)
	if err != nil {
		contract.LogWarn("scheduled incident scan failed", err)
	} else {
		contract.LogInfo(fmt.Sprintf("incident scan complete: %d candidate(s)", len(candidates)))
	}
	if s.OnScan != nil {
		s.OnScan(candidates, err)
	}
}
