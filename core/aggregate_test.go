package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crtscope/crtscope/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var aggNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestRegistry(store *fakeStore) *AggregatorRegistry {
	reg := NewAggregatorRegistry(store, schema.DefaultHalfLifeHours)
	reg.Now = func() time.Time { return aggNow }
	return reg
}

func seedSignal(store *fakeStore, sig schema.ActivitySignal) {
	if sig.ID == "" {
		sig.ID = schema.SignalID(sig.Source, sig.Kind, sig.NaturalKey)
	}
	store.signals[sig.ID] = sig
}

// TestAggregateWindowing verifies that signals older than the window are
// excluded entirely rather than decayed toward zero.
func TestAggregateWindowing(t *testing.T) {
	store := newFakeStore()
	seedSignal(store, schema.ActivitySignal{
		Source: schema.GitSource, Kind: "pr", NaturalKey: "svc#1",
		ComponentIDs: []string{"comp:core.payments"},
		RawWeight:    1.8, Timestamp: aggNow.Add(-2 * time.Hour),
	})
	seedSignal(store, schema.ActivitySignal{
		Source: schema.GitSource, Kind: "pr", NaturalKey: "svc#2",
		ComponentIDs: []string{"comp:core.payments"},
		RawWeight:    1.8, Timestamp: aggNow.Add(-200 * time.Hour),
	})

	reg := newTestRegistry(store)
	agg, ok := reg.Get(schema.GitSource)
	require.True(t, ok)

	fs, err := agg.Aggregate(context.Background(), "comp:core.payments", 168)
	require.NoError(t, err)

	assert.Equal(t, 1, fs.SignalCount)
	require.NotNil(t, fs.Git)
	assert.Equal(t, 1, fs.Git.PRCount)
}

// TestAggregateDecayBeforeSum verifies the order of operations: each signal
// is decayed individually before the weights are summed.
func TestAggregateDecayBeforeSum(t *testing.T) {
	store := newFakeStore()
	// Two signals at exactly one git half-life (72h) of age. Each decays to
	// half its raw weight, so the sum must be raw, not 2*raw decayed once.
	for _, key := range []string{"svc#1", "svc#2"} {
		seedSignal(store, schema.ActivitySignal{
			Source: schema.GitSource, Kind: "commit", NaturalKey: key,
			ComponentIDs: []string{"comp:core.payments"},
			RawWeight:    1.0, Timestamp: aggNow.Add(-72 * time.Hour),
		})
	}

	reg := newTestRegistry(store)
	agg, _ := reg.Get(schema.GitSource)

	fs, err := agg.Aggregate(context.Background(), "comp:core.payments", 168)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, fs.DecayedSum, 1e-9)
}

// TestAggregateDedupLatestWins verifies that duplicate natural events (an
// edited Slack message ingested twice) resolve to the most recent version by
// timestamp regardless of map iteration order.
func TestAggregateDedupLatestWins(t *testing.T) {
	store := newFakeStore()
	older := schema.ActivitySignal{
		ID:     "signal:slack:message:C42/100.1-v1",
		Source: schema.SlackSource, Kind: "message", NaturalKey: "C42/100.1",
		ComponentIDs: []string{"comp:core.payments"},
		RawWeight:    1.0, Timestamp: aggNow.Add(-3 * time.Hour),
	}
	newer := older
	newer.ID = "signal:slack:message:C42/100.1-v2"
	newer.Timestamp = aggNow.Add(-1 * time.Hour)
	newer.Complaint = true
	store.signals[older.ID] = older
	store.signals[newer.ID] = newer

	reg := newTestRegistry(store)
	agg, _ := reg.Get(schema.SlackSource)

	fs, err := agg.Aggregate(context.Background(), "comp:core.payments", 168)
	require.NoError(t, err)

	assert.Equal(t, 1, fs.SignalCount)
	require.NotNil(t, fs.Slack)
	assert.Equal(t, 1, fs.Slack.ComplaintCount, "edited version must win")
}

// TestCollectFeaturesFailSoft verifies that one unreachable source yields a
// zero-valued Unavailable feature set while the others aggregate normally.
func TestCollectFeaturesFailSoft(t *testing.T) {
	store := newFakeStore()
	store.signalsErr[schema.SlackSource] = errors.New("slack API timeout")
	seedSignal(store, schema.ActivitySignal{
		Source: schema.GitSource, Kind: "pr", NaturalKey: "svc#9",
		ComponentIDs: []string{"comp:core.payments"},
		RawWeight:    1.8, Timestamp: aggNow.Add(-1 * time.Hour),
	})

	reg := newTestRegistry(store)
	features := reg.CollectFeatures(context.Background(), "comp:core.payments", 168)

	require.Len(t, features, len(schema.AllSources))

	slack := features[schema.SlackSource]
	assert.True(t, slack.Unavailable)
	assert.True(t, slack.Empty())

	git := features[schema.GitSource]
	assert.False(t, git.Unavailable)
	assert.Equal(t, 1, git.SignalCount)
}

// TestAggregateSupportRunningMean checks AvgSeverity over mixed severities.
func TestAggregateSupportRunningMean(t *testing.T) {
	store := newFakeStore()
	cases := []struct {
		key      string
		severity string
	}{
		{"CASE-1", "critical"}, // 1.0
		{"CASE-2", "low"},      // 0.25
	}
	for _, c := range cases {
		seedSignal(store, schema.ActivitySignal{
			Source: schema.SupportSource, Kind: "case", NaturalKey: c.key,
			ComponentIDs: []string{"comp:core.payments"},
			RawWeight:    1.5, Timestamp: aggNow.Add(-1 * time.Hour),
			Severity: c.severity,
		})
	}

	reg := newTestRegistry(store)
	agg, _ := reg.Get(schema.SupportSource)

	fs, err := agg.Aggregate(context.Background(), "comp:core.payments", 168)
	require.NoError(t, err)
	require.NotNil(t, fs.Support)
	assert.Equal(t, 2, fs.Support.OpenCases)
	assert.InDelta(t, 0.625, fs.Support.AvgSeverity, 1e-9)
}

// TestAggregateDistinctCounts covers author and thread dedup in rollups.
func TestAggregateDistinctCounts(t *testing.T) {
	store := newFakeStore()
	msgs := []struct {
		key, actor, thread string
	}{
		{"C1/1.0", "ana", "T1"},
		{"C1/2.0", "ana", "T1"},
		{"C1/3.0", "ben", "T2"},
	}
	for _, m := range msgs {
		seedSignal(store, schema.ActivitySignal{
			Source: schema.SlackSource, Kind: "message", NaturalKey: m.key,
			ComponentIDs: []string{"comp:core.payments"},
			RawWeight:    1.0, Timestamp: aggNow.Add(-1 * time.Hour),
			Actor: m.actor, ThreadID: m.thread,
		})
	}

	reg := newTestRegistry(store)
	agg, _ := reg.Get(schema.SlackSource)

	fs, err := agg.Aggregate(context.Background(), "comp:core.payments", 168)
	require.NoError(t, err)
	require.NotNil(t, fs.Slack)
	assert.Equal(t, 3, fs.Slack.MessageCount)
	assert.Equal(t, 2, fs.Slack.UniqueAuthors)
	assert.Equal(t, 2, fs.Slack.ThreadCount)
}
