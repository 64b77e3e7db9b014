package sched

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/crtscope/crtscope/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScanner struct {
	mu         sync.Mutex
	calls      int
	err        error
	candidates []schema.IncidentCandidate
}

func (f *fakeScanner) RunIncidentScan(_ context.Context) ([]schema.IncidentCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.candidates, f.err
}

func (f *fakeScanner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSchedulerRunsScan(t *testing.T) {
	scanner := &fakeScanner{candidates: []schema.IncidentCandidate{{SnapshotID: "snap-1"}}}
	scheduler := New(scanner, "* * * * * *") // every second

	done := make(chan struct{})
	var once sync.Once
	scheduler.OnScan = func(candidates []schema.IncidentCandidate, err error) {
		assert.NoError(t, err)
		assert.Len(t, candidates, 1)
		once.Do(func() { close(done) })
	}

	require.NoError(t, scheduler.Start(context.Background()))
	defer scheduler.Stop()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("scan never ran")
	}
	assert.GreaterOrEqual(t, scanner.callCount(), 1)
}

// TestSchedulerSurvivesScanFailure verifies a failing scan does not stop the
// schedule.
func TestSchedulerSurvivesScanFailure(t *testing.T) {
	scanner := &fakeScanner{err: errors.New("store down")}
	scheduler := New(scanner, "* * * * * *")

	done := make(chan struct{})
	var count int
	var mu sync.Mutex
	scheduler.OnScan = func(_ []schema.IncidentCandidate, err error) {
		assert.Error(t, err)
		mu.Lock()
		count++
		if count == 2 {
			close(done)
		}
		mu.Unlock()
	}

	require.NoError(t, scheduler.Start(context.Background()))
	defer scheduler.Stop()

	select {
	case <-done:
	case <-time.After(4 * time.Second):
		t.Fatal("scheduler stopped after a failure")
	}
}

func TestSchedulerInvalidSpec(t *testing.T) {
	scheduler := New(&fakeScanner{}, "not a cron spec")
	err := scheduler.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron spec")
}
