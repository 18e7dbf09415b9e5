// Package template expands declarative flow templates (nodes keyed by
// local IDs plus local-ID connections) into real graph entities with
// freshly generated global IDs.
package template

import (
	"context"
	"fmt"

	"github.com/loomworks/weft/pkg/domain"
	"github.com/loomworks/weft/pkg/graph"
)

// Definition is a reusable description of a node/edge subgraph. Local IDs
// are meaningful only inside the definition; instantiation replaces them.
type Definition struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Nodes       []NodeDef       `json:"nodes" yaml:"nodes"`
	Connections []ConnectionDef `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// NodeDef declares one template node. Config stays a loose map in the file
// format and is decoded into the typed variant at instantiation time.
type NodeDef struct {
	LocalID     string          `json:"localId" yaml:"localId"`
	Type        domain.NodeType `json:"type" yaml:"type"`
	Title       string          `json:"title" yaml:"title"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Config      map[string]any  `json:"config,omitempty" yaml:"config,omitempty"`
}

// ConnectionDef wires two template nodes by local ID.
type ConnectionDef struct {
	From string `json:"fromLocalId" yaml:"fromLocalId"`
	To   string `json:"toLocalId" yaml:"toLocalId"`
}

// Source supplies template definitions, locally or remotely fetched.
type Source interface {
	// List returns every available definition.
	List(ctx context.Context) ([]Definition, error)

	// Get returns one definition by name.
	// Returns domain.ErrTemplateNotFound for unknown names.
	Get(ctx context.Context, name string) (Definition, error)
}

// Validate checks a definition for structural problems: missing or
// duplicate local IDs, unknown node types, and connections referencing
// absent locals.
func (d Definition) Validate() error {
	locals := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.LocalID == "" {
			return fmt.Errorf("template %q: node %q has no localId", d.Name, n.Title)
		}
		if locals[n.LocalID] {
			return fmt.Errorf("template %q: duplicate localId %q", d.Name, n.LocalID)
		}
		if !n.Type.Valid() {
			return fmt.Errorf("template %q: node %q has unknown type %q", d.Name, n.LocalID, n.Type)
		}
		locals[n.LocalID] = true
	}
	for _, c := range d.Connections {
		if !locals[c.From] {
			return fmt.Errorf("template %q: connection references unknown localId %q", d.Name, c.From)
		}
		if !locals[c.To] {
			return fmt.Errorf("template %q: connection references unknown localId %q", d.Name, c.To)
		}
		if c.From == c.To {
			return fmt.Errorf("template %q: connection %q -> %q: %w", d.Name, c.From, c.To, domain.ErrSelfLoop)
		}
	}
	return nil
}

// Instantiate expands the definition into the store in a single atomic
// replace: one fresh global ID per node, every connection remapped through
// the localId -> globalId table, all nodes starting queued. The whole
// instantiation is rejected if any connection references a local ID absent
// from the node set; the store is never left partially built.
//
// The returned map carries the localId -> globalId assignment.
func Instantiate(def Definition, store *graph.Store) (map[string]string, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	idMap := make(map[string]string, len(def.Nodes))
	nodes := make([]domain.Node, 0, len(def.Nodes))
	for _, nd := range def.Nodes {
		cfg, err := domain.DecodeConfig(nd.Type, nd.Config)
		if err != nil {
			return nil, fmt.Errorf("template %q: node %q: %w", def.Name, nd.LocalID, err)
		}
		globalID := domain.NewNodeID(nd.Type, nd.Title)
		idMap[nd.LocalID] = globalID
		nodes = append(nodes, domain.Node{
			ID:          globalID,
			Type:        nd.Type,
			Title:       nd.Title,
			Description: nd.Description,
			Config:      cfg,
		})
	}

	edges := make([]domain.Edge, 0, len(def.Connections))
	for _, c := range def.Connections {
		edges = append(edges, domain.NewEdge(idMap[c.From], idMap[c.To]))
	}

	if err := store.ReplaceGraph(nodes, edges); err != nil {
		return nil, fmt.Errorf("template %q: %w", def.Name, err)
	}
	return idMap, nil
}
