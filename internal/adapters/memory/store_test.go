package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/weft/internal/adapters/memory"
	"github.com/loomworks/weft/pkg/bridge"
	"github.com/loomworks/weft/pkg/domain"
	"github.com/loomworks/weft/pkg/ports"
)

func TestSnapshotStore_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, memory.NewSnapshotStore())
}

func TestSnapshotStore_IsolatesStoredState(t *testing.T) {
	store := memory.NewSnapshotStore()
	ctx := context.Background()

	snap := &domain.Snapshot{
		Nodes:    []domain.Node{{ID: "n1", Type: domain.NodeTypePrompt, Title: "p"}},
		Statuses: map[string]domain.ExecutionStatus{"n1": domain.StatusQueued},
	}
	require.NoError(t, store.Save(ctx, "main", snap))

	// Mutating the original after saving must not affect the stored copy.
	snap.Nodes[0].Title = "changed"
	snap.Statuses["n1"] = domain.StatusFailed

	got, err := store.Load(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "p", got.Nodes[0].Title)
	assert.Equal(t, domain.StatusQueued, got.Statuses["n1"])
}

func TestEchoDispatcher_EmitsResult(t *testing.T) {
	br := bridge.New()

	var got bridge.TaskResult
	br.On("prompt:result", func(r bridge.TaskResult) { got = r })

	disp := memory.NewEchoDispatcher(br)
	err := disp.Dispatch(context.Background(), domain.Task{
		NodeID:      "prompt-p-12345678",
		NodeType:    domain.NodeTypePrompt,
		Instruction: "say hi",
	})
	require.NoError(t, err)

	assert.Equal(t, "prompt-p-12345678", got.NodeID)
	assert.Contains(t, got.Data["echo"], "say hi")
}
