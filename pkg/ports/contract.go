package ports

import (
	"context"
	"testing"

	"github.com/loomworks/weft/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract verifies the behavior every SnapshotStore
// implementation must provide. Adapter tests call it with a fresh store.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	t.Helper()
	ctx := context.Background()

	snap := &domain.Snapshot{
		Nodes: []domain.Node{
			{
				ID:     "n1",
				Type:   domain.NodeTypeWebSummarizer,
				Title:  "Summarize",
				Config: domain.WebSummarizerConfig{URL: "https://example.com"},
			},
			{ID: "n2", Type: domain.NodeTypePrompt, Title: "Prompt"},
		},
		Edges: []domain.Edge{
			{ID: "e1", From: "n1", To: "n2"},
		},
		Statuses: map[string]domain.ExecutionStatus{
			"n1": domain.StatusCompleted,
			"n2": domain.StatusQueued,
		},
	}

	t.Run("load missing", func(t *testing.T) {
		_, err := store.Load(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("save and load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "main", snap))

		got, err := store.Load(ctx, "main")
		require.NoError(t, err)
		require.Len(t, got.Nodes, 2)
		assert.Equal(t, "n1", got.Nodes[0].ID)
		assert.Equal(t, domain.StatusCompleted, got.Statuses["n1"])

		// Typed config survives the round trip.
		cfg, ok := got.Nodes[0].Config.(domain.WebSummarizerConfig)
		require.True(t, ok)
		assert.Equal(t, "https://example.com", cfg.URL)
	})

	t.Run("list", func(t *testing.T) {
		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, "main")
	})

	t.Run("overwrite", func(t *testing.T) {
		smaller := &domain.Snapshot{Nodes: snap.Nodes[:1]}
		require.NoError(t, store.Save(ctx, "main", smaller))

		got, err := store.Load(ctx, "main")
		require.NoError(t, err)
		assert.Len(t, got.Nodes, 1)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "main"))
		_, err := store.Load(ctx, "main")
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})
}
