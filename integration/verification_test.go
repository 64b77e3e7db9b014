//go:build basic

// Package integration contains integration tests for crtscope.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
package integration

import (
	"bytes"
	"encoding/json"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// activityPayload mirrors the JSON the activity command emits.
type activityPayload struct {
	ComponentID          string  `json:"component_id"`
	ActivityScore        float64 `json:"activity_score"`
	DissatisfactionScore float64 `json:"dissatisfaction_score"`
	GitEvents            int     `json:"git_events"`
	SlackComplaints      int     `json:"slack_complaints"`
	TimeWindowLabel      string  `json:"time_window_label"`
}

// TestEndToEndScoring runs the full apply/ingest/score lifecycle on a SQLite
// store and verifies the scores against the ingested fixtures.
func TestEndToEndScoring(t *testing.T) {
	dir := t.TempDir()
	topologyPath, eventsPath := writeFixtures(t, dir)

	env := []string{
		"CRTSCOPE_GRAPH_BACKEND=sqlite",
		"CRTSCOPE_GRAPH_DB_CONNECT=" + dir + "/graph.db",
		"CRTSCOPE_CURSOR_DIR=" + dir + "/cursors",
	}

	run := func(args ...string) (string, string, error) {
		cmd := exec.Command(getBinary(), args...)
		cmd.Dir = dir
		cmd.Env = append(cmd.Environ(), env...)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		err := cmd.Run()
		if err != nil {
			t.Logf("Command failed: %s\nStdout: %s\nStderr: %s", cmd.String(), stdout.String(), stderr.String())
		}
		return stdout.String(), stderr.String(), err
	}

	// Seed the graph and ingest the fixture events
	_, _, err := run("graph", "apply", topologyPath)
	require.NoError(t, err)

	stdout, _, err := run("ingest", eventsPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Ingested 3 event(s)")

	// Score payments and verify the counts match what was ingested
	stdout, _, err = run("activity", "payments", "--output", "json")
	require.NoError(t, err)

	var payload activityPayload
	require.NoError(t, json.Unmarshal([]byte(stdout), &payload))
	assert.Equal(t, "comp:payments", payload.ComponentID)
	assert.Equal(t, 2, payload.GitEvents, "one PR and one commit were ingested")
	assert.Equal(t, 1, payload.SlackComplaints)
	assert.Greater(t, payload.ActivityScore, 0.0)
	assert.Greater(t, payload.DissatisfactionScore, 0.0)
	assert.Equal(t, "7d", payload.TimeWindowLabel)

	// Re-ingesting the same file must be a no-op thanks to cursors
	stdout, _, err = run("ingest", eventsPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Ingested 0 event(s)")
	assert.Contains(t, stdout, "Skipped 3 event(s)")

	// The untouched component scores zero but still appears on the leaderboard
	stdout, _, err = run("leaderboard", "--output", "json")
	require.NoError(t, err)
	assert.Contains(t, stdout, "comp:payments")
	assert.Contains(t, stdout, "comp:checkout")
}
