package template_test

import (
	"testing"

	"github.com/loomworks/weft/pkg/domain"
	"github.com/loomworks/weft/pkg/graph"
	"github.com/loomworks/weft/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoNodeDefinition() template.Definition {
	return template.Definition{
		Name: "summarize-then-prompt",
		Nodes: []template.NodeDef{
			{
				LocalID: "fetch",
				Type:    domain.NodeTypeWebSummarizer,
				Title:   "Fetch page",
				Config:  map[string]any{"url": "https://example.com"},
			},
			{
				LocalID: "ask",
				Type:    domain.NodeTypePrompt,
				Title:   "Ask about it",
				Config:  map[string]any{"promptText": "What did we learn?"},
			},
		},
		Connections: []template.ConnectionDef{
			{From: "fetch", To: "ask"},
		},
	}
}

func TestInstantiate_RemapsLocalIDs(t *testing.T) {
	store := graph.NewStore()
	def := twoNodeDefinition()

	idMap, err := template.Instantiate(def, store)
	require.NoError(t, err)
	require.Len(t, idMap, 2)

	fetchID, askID := idMap["fetch"], idMap["ask"]
	assert.NotEqual(t, "fetch", fetchID, "global IDs must be freshly generated")
	assert.NotEqual(t, "ask", askID)

	nodes := store.Nodes()
	require.Len(t, nodes, 2)
	for _, n := range nodes {
		assert.Equal(t, domain.StatusQueued, store.Status(n.ID))
	}

	edges := store.Edges()
	require.Len(t, edges, 1, "exactly one edge per template connection")
	assert.Equal(t, fetchID, edges[0].From)
	assert.Equal(t, askID, edges[0].To)
	for _, e := range edges {
		assert.NotEqual(t, "fetch", e.From, "no stale local IDs in edges")
		assert.NotEqual(t, "ask", e.To)
	}

	fetch, err := store.Node(fetchID)
	require.NoError(t, err)
	cfg, ok := fetch.Config.(domain.WebSummarizerConfig)
	require.True(t, ok)
	assert.Equal(t, "https://example.com", cfg.URL)
}

func TestInstantiate_FreshIDsEveryTime(t *testing.T) {
	def := twoNodeDefinition()

	first, err := template.Instantiate(def, graph.NewStore())
	require.NoError(t, err)
	second, err := template.Instantiate(def, graph.NewStore())
	require.NoError(t, err)

	assert.NotEqual(t, first["fetch"], second["fetch"])
	assert.NotEqual(t, first["ask"], second["ask"])
}

func TestInstantiate_ReplacesExistingGraph(t *testing.T) {
	store := graph.NewStore()
	old, err := store.AddNode(domain.Node{Type: domain.NodeTypeWait, Title: "leftover"})
	require.NoError(t, err)

	_, err = template.Instantiate(twoNodeDefinition(), store)
	require.NoError(t, err)

	_, err = store.Node(old.ID)
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	assert.Len(t, store.Nodes(), 2)
}

func TestInstantiate_UnknownLocalIDFailsFast(t *testing.T) {
	store := graph.NewStore()
	keep, err := store.AddNode(domain.Node{Type: domain.NodeTypeWait, Title: "keep"})
	require.NoError(t, err)

	def := twoNodeDefinition()
	def.Connections = append(def.Connections, template.ConnectionDef{From: "fetch", To: "ghost"})

	_, err = template.Instantiate(def, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")

	// The existing graph must be untouched on failure.
	_, err = store.Node(keep.ID)
	assert.NoError(t, err)
	assert.Len(t, store.Nodes(), 1)
}

func TestDefinition_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*template.Definition)
	}{
		{"missing localId", func(d *template.Definition) { d.Nodes[0].LocalID = "" }},
		{"duplicate localId", func(d *template.Definition) { d.Nodes[1].LocalID = "fetch" }},
		{"unknown type", func(d *template.Definition) { d.Nodes[0].Type = "quantum" }},
		{"self connection", func(d *template.Definition) { d.Connections[0].To = "fetch" }},
		{"dangling from", func(d *template.Definition) { d.Connections[0].From = "nope" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := twoNodeDefinition()
			tc.mutate(&def)
			assert.Error(t, def.Validate())
		})
	}

	assert.NoError(t, twoNodeDefinition().Validate())
}
