// Package memory provides in-process adapters: a snapshot store backed by a
// map and a task dispatcher that completes work locally. Both are the
// defaults when no external backend is configured.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/loomworks/weft/pkg/domain"
)

// SnapshotStore keeps snapshots in a mutex-guarded map. Snapshots are
// stored as JSON so callers can never mutate retained state through
// shared references.
type SnapshotStore struct {
	mu    sync.RWMutex
	snaps map[string][]byte
}

// NewSnapshotStore creates an empty in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snaps: make(map[string][]byte)}
}

// Save persists the snapshot under name, overwriting any previous one.
func (s *SnapshotStore) Save(_ context.Context, name string, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[name] = data
	return nil
}

// Load retrieves a snapshot by name.
func (s *SnapshotStore) Load(_ context.Context, name string) (*domain.Snapshot, error) {
	s.mu.RLock()
	data, ok := s.snaps[name]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes the snapshot for name. Deleting an absent name is a no-op.
func (s *SnapshotStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, name)
	return nil
}

// List returns the stored snapshot names in unspecified order.
func (s *SnapshotStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.snaps))
	for name := range s.snaps {
		names = append(names, name)
	}
	return names, nil
}
