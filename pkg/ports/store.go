package ports

import (
	"context"

	"github.com/loomworks/weft/pkg/domain"
)

// SnapshotStore persists named graph snapshots. This gives the editor
// durable "save layout" semantics without prescribing how the UI lays
// pixels out.
type SnapshotStore interface {
	// Save persists the snapshot under a name, overwriting any previous one.
	Save(ctx context.Context, name string, snap *domain.Snapshot) error

	// Load retrieves a snapshot by name.
	// Returns domain.ErrSnapshotNotFound if the name does not exist.
	Load(ctx context.Context, name string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a name.
	Delete(ctx context.Context, name string) error

	// List returns the names of stored snapshots.
	List(ctx context.Context) ([]string, error)
}
