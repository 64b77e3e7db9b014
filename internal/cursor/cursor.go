// Package cursor persists per-source ingestion cursors as JSON files on
// disk. One file per source keeps blast radius small when a file is deleted
// to force a full re-ingest of that source.
package cursor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/crtscope/crtscope/internal/contract"
	"github.com/crtscope/crtscope/schema"
)

var _ contract.CursorStore = &FileStore{}

// FileStore is a CursorStore backed by per-source JSON files in a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the cursor directory if needed and returns a store.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = contract.GetCursorDirPath()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cursor directory %q: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Get returns the last-processed timestamp for a source and key. A missing
// file or missing key returns the zero time, meaning "ingest everything".
func (s *FileStore) Get(source schema.Source, key string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cursors, err := s.load(source)
	if err != nil {
		return time.Time{}, err
	}
	raw, ok := cursors[key]
	if !ok {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt cursor for %s/%s: %w", source, key, err)
	}
	return ts, nil
}

// Set records the last-processed timestamp for a source and key. Writes go
// through a temp file and rename so a crash never leaves a half-written
// cursor file.
func (s *FileStore) Set(source schema.Source, key string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cursors, err := s.load(source)
	if err != nil {
		return err
	}
	cursors[key] = ts.UTC().Format(time.RFC3339Nano)

	data, err := json.MarshalIndent(cursors, "", "  ")
	if err != nil {
		return err
	}
	path := s.filePath(source)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cursor file: %w", err)
	}
	return os.Rename(tmp, path)
}

// load reads the cursor map for a source, tolerating a missing file.
func (s *FileStore) load(source schema.Source) (map[string]string, error) {
	data, err := os.ReadFile(s.filePath(source))
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cursor file: %w", err)
	}
	cursors := map[string]string{}
	if err := json.Unmarshal(data, &cursors); err != nil {
		return nil, fmt.Errorf("corrupt cursor file for %s: %w", source, err)
	}
	return cursors, nil
}

func (s *FileStore) filePath(source schema.Source) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.json", source))
}
