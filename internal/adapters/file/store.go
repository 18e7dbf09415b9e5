// Package file provides filesystem adapters: a snapshot store writing
// atomic JSON files and a template source reading YAML definitions from a
// directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/loomworks/weft/pkg/domain"
)

// Store implements ports.SnapshotStore on the local filesystem, one JSON
// file per snapshot name.
type Store struct {
	BasePath string
}

// NewStore creates a Store rooted at basePath. If basePath is empty, it
// defaults to ".weft/snapshots".
func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".weft", "snapshots")
	}
	return &Store{BasePath: basePath}
}

// Save persists the snapshot atomically: write to a temp file in the same
// directory, fsync, then rename over the destination.
func (s *Store) Save(_ context.Context, name string, snap *domain.Snapshot) error {
	if name == "" {
		return fmt.Errorf("snapshot name cannot be empty")
	}
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	destPath := filepath.Join(s.BasePath, name+".json")

	// Temp file in the same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+name+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename replaces an existing destination on POSIX; on Windows it
	// fails, so clear the destination first and accept the tiny window.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing snapshot for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}
	return nil
}

// Load retrieves a snapshot by name.
func (s *Store) Load(_ context.Context, name string) (*domain.Snapshot, error) {
	if name == "" {
		return nil, fmt.Errorf("snapshot name cannot be empty")
	}

	data, err := os.ReadFile(filepath.Join(s.BasePath, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes the snapshot file. Absent names are not an error.
func (s *Store) Delete(_ context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("snapshot name cannot be empty")
	}
	err := os.Remove(filepath.Join(s.BasePath, name+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot file: %w", err)
	}
	return nil
}

// List returns all stored snapshot names.
func (s *Store) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		name := entry.Name()
		names = append(names, name[:len(name)-len(".json")])
	}
	return names, nil
}
