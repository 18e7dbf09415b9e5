package weft_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	weft "github.com/loomworks/weft"
	"github.com/loomworks/weft/pkg/domain"
	"github.com/loomworks/weft/pkg/template"
)

func TestEngine_EndToEnd(t *testing.T) {
	eng := weft.New()
	defer eng.Close()
	ctx := context.Background()

	// Build a two-node flow through the wiring protocol.
	a, err := eng.AddNode(domain.Node{
		Type:   domain.NodeTypePrompt,
		Title:  "Ask",
		Config: domain.PromptConfig{PromptText: "hello"},
	})
	require.NoError(t, err)
	b, err := eng.AddNode(domain.Node{
		Type:   domain.NodeTypePrompt,
		Title:  "Follow up",
		Config: domain.PromptConfig{PromptText: "and then?"},
	})
	require.NoError(t, err)

	require.NoError(t, eng.ClickOutput(a.ID))
	edge, err := eng.ClickInput(b.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, edge.From)

	// The default echo dispatcher completes the node synchronously.
	require.NoError(t, eng.RunNode(ctx, a.ID))
	assert.Equal(t, domain.StatusCompleted, eng.Status(a.ID))
	got, err := eng.Node(a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Output)
	assert.Contains(t, got.Output.Data["echo"], "hello")

	// Audit trail saw the whole session.
	assert.NotEmpty(t, eng.Trail().Timeline())
	assert.NotEmpty(t, eng.Trail().Console())

	// Snapshot round trip.
	require.NoError(t, eng.SaveSnapshot(ctx, "main"))
	eng.DeleteNode(b.ID)
	require.NoError(t, eng.LoadSnapshot(ctx, "main"))
	assert.Len(t, eng.Nodes(), 2)
	assert.Equal(t, domain.StatusCompleted, eng.Status(a.ID))
}

func TestEngine_InstantiateTemplate(t *testing.T) {
	eng := weft.New()
	defer eng.Close()

	idMap, err := eng.InstantiateTemplate(template.Definition{
		Name: "pair",
		Nodes: []template.NodeDef{
			{LocalID: "a", Type: domain.NodeTypeWait, Title: "First"},
			{LocalID: "b", Type: domain.NodeTypeWait, Title: "Second"},
		},
		Connections: []template.ConnectionDef{{From: "a", To: "b"}},
	})
	require.NoError(t, err)

	assert.Len(t, eng.Nodes(), 2)
	edges := eng.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, idMap["a"], edges[0].From)
	assert.Equal(t, idMap["b"], edges[0].To)
}

func TestEngine_LoadTemplateWithoutSourceFails(t *testing.T) {
	eng := weft.New()
	defer eng.Close()

	_, err := eng.LoadTemplate(context.Background(), "anything")
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}
