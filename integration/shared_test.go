//go:build basic || database

package integration

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

var (
	// sharedBinaryPath holds the path to a shared crtscope binary built once for all tests.
	sharedBinaryPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	// Run all tests
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getBinary returns the path to the crtscope binary, building it once if needed.
func getBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		// Create a temp directory for the binary
		var err error
		tempDir, err = os.MkdirTemp("", "crtscope-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		binaryPath := filepath.Join(tempDir, "crtscope")
		buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		err = buildCmd.Run()
		if err != nil {
			panic(fmt.Sprintf("failed to build crtscope: %v", err))
		}

		sharedBinaryPath = binaryPath
	})

	return sharedBinaryPath
}

// writeFixtures writes a topology YAML and a batch of raw events into dir and
// returns both paths. The events cover git and slack sources for the
// payments component, with timestamps inside the default window.
func writeFixtures(t *testing.T, dir string) (topologyPath, eventsPath string) {
	t.Helper()

	topologyPath = filepath.Join(dir, "topology.yaml")
	topology := `components:
  - id: payments
    name: Payments
    team: payments-team
  - id: checkout
    name: Checkout
    team: storefront
nodes:
  - id: doc:payments-runbook
    name: Payments runbook
edges:
  - {from: payments, to: doc:payments-runbook, kind: documented_by}
  - {from: checkout, to: payments, kind: depends_on}
`
	if err := os.WriteFile(topologyPath, []byte(topology), 0o644); err != nil {
		t.Fatalf("failed to write topology fixture: %v", err)
	}

	now := time.Now().UTC()
	events := []map[string]any{
		{
			"source": "git", "kind": "pr", "natural_key": "payments-svc#412",
			"component_ids": []string{"payments"}, "timestamp": now.Add(-2 * time.Hour),
			"actor": "alice", "title": "Fix retry storm", "lines_changed": 240,
		},
		{
			"source": "git", "kind": "commit", "natural_key": "payments-svc@abc123",
			"component_ids": []string{"payments"}, "timestamp": now.Add(-26 * time.Hour),
			"actor": "bob", "lines_changed": 40,
		},
		{
			"source": "slack", "kind": "message", "natural_key": "C123/1726.5031",
			"component_ids": []string{"payments"}, "timestamp": now.Add(-3 * time.Hour),
			"channel": "incident-war-room", "thread_id": "1726.5031",
			"complaint": true, "critical_channel": true,
			"title": "payments keeps timing out",
		},
	}

	eventsPath = filepath.Join(dir, "events.ndjson")
	f, err := os.Create(eventsPath)
	if err != nil {
		t.Fatalf("failed to create events fixture: %v", err)
	}
	defer func() { _ = f.Close() }()
	enc := json.NewEncoder(f)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			t.Fatalf("failed to write events fixture: %v", err)
		}
	}
	return topologyPath, eventsPath
}

// runCommand runs the crtscope binary with the given args and returns its
// combined output.
func runCommand(t *testing.T, dir string, args ...string) ([]byte, error) {
	t.Helper()
	cmd := exec.Command(getBinary(), args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Logf("Command failed: %s\nOutput: %s", cmd.String(), string(output))
	}
	return output, err
}
