package graph_test

import (
	"testing"

	"github.com/loomworks/weft/pkg/domain"
	"github.com/loomworks/weft/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWiring_HappyPath(t *testing.T) {
	s := graph.NewStore()
	a := addNode(t, s, domain.NodeTypePrompt, "a")
	b := addNode(t, s, domain.NodeTypePrompt, "b")
	w := graph.NewWiring(s)

	require.NoError(t, w.ClickOutput(a.ID))
	from, pending := w.Pending()
	assert.True(t, pending)
	assert.Equal(t, a.ID, from)

	edge, err := w.ClickInput(b.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, edge.From)
	assert.Equal(t, b.ID, edge.To)

	// Back to idle.
	_, pending = w.Pending()
	assert.False(t, pending)
	assert.Len(t, s.Edges(), 1)
}

func TestWiring_SelfLoopRejected(t *testing.T) {
	s := graph.NewStore()
	a := addNode(t, s, domain.NodeTypePrompt, "a")
	w := graph.NewWiring(s)

	require.NoError(t, w.ClickOutput(a.ID))
	_, err := w.ClickInput(a.ID)
	assert.ErrorIs(t, err, domain.ErrSelfLoop)

	// Rejection returns to idle, nothing was created.
	_, pending := w.Pending()
	assert.False(t, pending)
	assert.Empty(t, s.Edges())
}

func TestWiring_DuplicateRejected(t *testing.T) {
	s := graph.NewStore()
	a := addNode(t, s, domain.NodeTypePrompt, "a")
	b := addNode(t, s, domain.NodeTypePrompt, "b")
	_, err := s.AddEdge(a.ID, b.ID)
	require.NoError(t, err)

	w := graph.NewWiring(s)
	require.NoError(t, w.ClickOutput(a.ID))
	_, err = w.ClickInput(b.ID)
	assert.ErrorIs(t, err, domain.ErrDuplicateEdge)
	assert.Len(t, s.Edges(), 1)
}

func TestWiring_CancelOnCanvasClick(t *testing.T) {
	s := graph.NewStore()
	a := addNode(t, s, domain.NodeTypePrompt, "a")
	b := addNode(t, s, domain.NodeTypePrompt, "b")
	w := graph.NewWiring(s)

	require.NoError(t, w.ClickOutput(a.ID))
	w.Cancel()

	// The gesture is gone; a later input click is not a connection.
	edge, err := w.ClickInput(b.ID)
	require.NoError(t, err)
	assert.Empty(t, edge.ID)
	assert.Empty(t, s.Edges())
}

func TestWiring_SelectOtherNodeCancels(t *testing.T) {
	s := graph.NewStore()
	a := addNode(t, s, domain.NodeTypePrompt, "a")
	b := addNode(t, s, domain.NodeTypePrompt, "b")
	w := graph.NewWiring(s)

	require.NoError(t, w.ClickOutput(a.ID))
	w.SelectNode(b.ID)
	_, pending := w.Pending()
	assert.False(t, pending)

	// Selecting the pending source keeps the gesture alive.
	require.NoError(t, w.ClickOutput(a.ID))
	w.SelectNode(a.ID)
	_, pending = w.Pending()
	assert.True(t, pending)
}

func TestWiring_RestartFromNewSource(t *testing.T) {
	s := graph.NewStore()
	a := addNode(t, s, domain.NodeTypePrompt, "a")
	b := addNode(t, s, domain.NodeTypePrompt, "b")
	c := addNode(t, s, domain.NodeTypePrompt, "c")
	w := graph.NewWiring(s)

	require.NoError(t, w.ClickOutput(a.ID))
	require.NoError(t, w.ClickOutput(b.ID))

	edge, err := w.ClickInput(c.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, edge.From)
}

func TestWiring_UnknownSource(t *testing.T) {
	s := graph.NewStore()
	w := graph.NewWiring(s)
	assert.ErrorIs(t, w.ClickOutput("ghost"), domain.ErrNodeNotFound)
}
