// Package state persists the bot's published snapshot to disk. Writes are
// atomic at the filesystem level so an external reader never observes a
// half-written file, even if the process dies mid-commit.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/alanyoungcy/arbsentinel/internal/domain"
)

// FileStore writes BotState snapshots to a single JSON file and serves the
// latest committed snapshot from memory.
type FileStore struct {
	path string

	mu      sync.RWMutex
	current domain.BotState
	loaded  bool
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the last committed snapshot from disk. A missing file is not an
// error; it leaves the store empty for a first run.
func (s *FileStore) Load() (domain.BotState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.BotState{}, nil
		}
		return domain.BotState{}, fmt.Errorf("state: read %s: %w", s.path, err)
	}

	var st domain.BotState
	if err := json.Unmarshal(data, &st); err != nil {
		return domain.BotState{}, fmt.Errorf("state: decode %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.current = st
	s.loaded = true
	s.mu.Unlock()
	return st.Clone(), nil
}

// Commit atomically replaces the snapshot file: the state is written to a
// temp file in the same directory, fsynced, then renamed over the target.
// The in-memory snapshot only advances after the rename succeeds.
func (s *FileStore) Commit(st domain.BotState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("state: create dir %s: %w", dir, err)
	}

	// Temp file must live on the same filesystem as the target or the
	// rename stops being atomic.
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("state: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("state: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("state: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("state: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("state: rename: %w", err)
	}

	s.mu.Lock()
	s.current = st.Clone()
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the last committed state.
func (s *FileStore) Snapshot() (domain.BotState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone(), s.loaded
}
