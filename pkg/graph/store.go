// Package graph owns the canonical workflow graph: the node set, the edge
// set and the execution status side-table. All structural invariants are
// enforced here; every other component mutates the graph exclusively through
// the Store.
package graph

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loomworks/weft/internal/logging"
	"github.com/loomworks/weft/pkg/domain"
)

// Store is the single source of truth for nodes, edges and statuses.
// Safe for concurrent use; every mutation is applied atomically under one
// lock so observers never see torn state.
type Store struct {
	mu        sync.RWMutex
	nodes     map[string]domain.Node
	nodeOrder []string
	edges     map[string]domain.Edge
	edgeOrder []string
	statuses  map[string]domain.ExecutionStatus

	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHooks registers lifecycle hooks fired after structural mutations.
// Status transitions are announced by the runtime, not the store, because
// only the state machine knows the event semantics behind a status write.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Store) {
		s.hooks = hooks
	}
}

// NewStore creates an empty graph store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		nodes:    make(map[string]domain.Node),
		edges:    make(map[string]domain.Edge),
		statuses: make(map[string]domain.ExecutionStatus),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddNode assigns an ID (unless the caller pre-generated one, as the
// template instantiator does), stores the node and defaults its status to
// queued. The stored node is returned.
func (s *Store) AddNode(n domain.Node) (domain.Node, error) {
	if !n.Type.Valid() {
		return domain.Node{}, fmt.Errorf("add node: unknown node type %q", n.Type)
	}
	if n.Config == nil {
		cfg, err := domain.ConfigFor(n.Type)
		if err != nil {
			return domain.Node{}, err
		}
		n.Config = cfg
	} else if n.Config.Kind() != n.Type {
		return domain.Node{}, fmt.Errorf("add node: config variant %q does not match type %q", n.Config.Kind(), n.Type)
	}
	if n.ID == "" {
		n.ID = domain.NewNodeID(n.Type, n.Title)
	}

	s.mu.Lock()
	if _, exists := s.nodes[n.ID]; exists {
		s.mu.Unlock()
		return domain.Node{}, fmt.Errorf("add node: id %q already exists", n.ID)
	}
	s.nodes[n.ID] = n.Clone()
	s.nodeOrder = append(s.nodeOrder, n.ID)
	s.statuses[n.ID] = domain.StatusQueued
	s.mu.Unlock()

	s.hooks.EmitGraphChange(&domain.GraphEvent{
		Timestamp: time.Now(),
		Type:      domain.EventNodeAdded,
		NodeID:    n.ID,
		NodeTitle: n.Title,
	})
	return n, nil
}

// NodePatch is a partial node update. Nil fields are left untouched. ID and
// Type are deliberately absent: both are immutable after creation.
type NodePatch struct {
	Title       *string
	Description *string
	Config      domain.Config
	Output      *domain.Output
}

// UpdateNode merges the patch into an existing node and returns the stored
// result. A patch config must be the variant matching the node's type.
func (s *Store) UpdateNode(id string, patch NodePatch) (domain.Node, error) {
	s.mu.Lock()
	n, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return domain.Node{}, fmt.Errorf("update node %s: %w", id, domain.ErrNodeNotFound)
	}
	if patch.Config != nil && patch.Config.Kind() != n.Type {
		s.mu.Unlock()
		return domain.Node{}, fmt.Errorf("update node %s: config variant %q does not match type %q",
			id, patch.Config.Kind(), n.Type)
	}

	if patch.Title != nil {
		n.Title = *patch.Title
	}
	if patch.Description != nil {
		n.Description = *patch.Description
	}
	if patch.Config != nil {
		n.Config = patch.Config
	}
	if patch.Output != nil {
		n.Output = patch.Output
	}
	s.nodes[id] = n.Clone()
	s.mu.Unlock()

	s.hooks.EmitGraphChange(&domain.GraphEvent{
		Timestamp: time.Now(),
		Type:      domain.EventNodeUpdated,
		NodeID:    n.ID,
		NodeTitle: n.Title,
	})
	return n, nil
}

// DeleteNode removes the node, cascades over every edge referencing it and
// drops its status entry. Deleting an absent node is a logged no-op so
// duplicate delete requests from concurrent UI events stay harmless.
func (s *Store) DeleteNode(id string) {
	s.mu.Lock()
	n, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		s.logger.Debug("delete of absent node ignored", "node", id)
		return
	}
	delete(s.nodes, id)
	s.nodeOrder = removeString(s.nodeOrder, id)
	delete(s.statuses, id)

	var removed []domain.Edge
	for _, eid := range s.edgeOrder {
		e := s.edges[eid]
		if e.From == id || e.To == id {
			removed = append(removed, e)
			delete(s.edges, eid)
		}
	}
	for _, e := range removed {
		s.edgeOrder = removeString(s.edgeOrder, e.ID)
	}
	s.mu.Unlock()

	s.hooks.EmitGraphChange(&domain.GraphEvent{
		Timestamp: time.Now(),
		Type:      domain.EventNodeRemoved,
		NodeID:    id,
		NodeTitle: n.Title,
	})
	for _, e := range removed {
		s.hooks.EmitGraphChange(&domain.GraphEvent{
			Timestamp: time.Now(),
			Type:      domain.EventEdgeRemoved,
			EdgeID:    e.ID,
			From:      e.From,
			To:        e.To,
		})
	}
}

// AddEdge wires from's output to to's input after checking the structural
// invariants: no self-loop, no duplicate (from, to) pair, both endpoints
// live.
func (s *Store) AddEdge(from, to string) (domain.Edge, error) {
	if from == to {
		return domain.Edge{}, domain.ErrSelfLoop
	}

	s.mu.Lock()
	if _, ok := s.nodes[from]; !ok {
		s.mu.Unlock()
		return domain.Edge{}, fmt.Errorf("edge %s -> %s: %w", from, to, domain.ErrDanglingEndpoint)
	}
	if _, ok := s.nodes[to]; !ok {
		s.mu.Unlock()
		return domain.Edge{}, fmt.Errorf("edge %s -> %s: %w", from, to, domain.ErrDanglingEndpoint)
	}
	for _, eid := range s.edgeOrder {
		e := s.edges[eid]
		if e.From == from && e.To == to {
			s.mu.Unlock()
			return domain.Edge{}, domain.ErrDuplicateEdge
		}
	}

	edge := domain.NewEdge(from, to)
	s.edges[edge.ID] = edge
	s.edgeOrder = append(s.edgeOrder, edge.ID)
	s.mu.Unlock()

	s.hooks.EmitGraphChange(&domain.GraphEvent{
		Timestamp: time.Now(),
		Type:      domain.EventEdgeAdded,
		EdgeID:    edge.ID,
		From:      from,
		To:        to,
	})
	return edge, nil
}

// DeleteEdge removes a single edge by ID.
func (s *Store) DeleteEdge(id string) error {
	s.mu.Lock()
	e, ok := s.edges[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete edge %s: %w", id, domain.ErrEdgeNotFound)
	}
	delete(s.edges, id)
	s.edgeOrder = removeString(s.edgeOrder, id)
	s.mu.Unlock()

	s.hooks.EmitGraphChange(&domain.GraphEvent{
		Timestamp: time.Now(),
		Type:      domain.EventEdgeRemoved,
		EdgeID:    e.ID,
		From:      e.From,
		To:        e.To,
	})
	return nil
}

// DeleteEdgesForNode removes every edge where the node is either endpoint.
func (s *Store) DeleteEdgesForNode(id string) {
	s.mu.Lock()
	var removed []domain.Edge
	for _, eid := range s.edgeOrder {
		e := s.edges[eid]
		if e.From == id || e.To == id {
			removed = append(removed, e)
			delete(s.edges, eid)
		}
	}
	for _, e := range removed {
		s.edgeOrder = removeString(s.edgeOrder, e.ID)
	}
	s.mu.Unlock()

	for _, e := range removed {
		s.hooks.EmitGraphChange(&domain.GraphEvent{
			Timestamp: time.Now(),
			Type:      domain.EventEdgeRemoved,
			EdgeID:    e.ID,
			From:      e.From,
			To:        e.To,
		})
	}
}

// ReplaceGraph atomically swaps the whole graph for the given node and edge
// sets. Used by template instantiation and snapshot restore; observers see
// either the old graph or the complete new one, never a partial build.
// Every node starts queued.
func (s *Store) ReplaceGraph(nodes []domain.Node, edges []domain.Edge) error {
	nodeSet := make(map[string]domain.Node, len(nodes))
	order := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if !n.Type.Valid() {
			return fmt.Errorf("replace graph: unknown node type %q", n.Type)
		}
		if n.ID == "" {
			return fmt.Errorf("replace graph: node %q has no id", n.Title)
		}
		if _, dup := nodeSet[n.ID]; dup {
			return fmt.Errorf("replace graph: duplicate node id %q", n.ID)
		}
		nodeSet[n.ID] = n.Clone()
		order = append(order, n.ID)
	}

	edgeSet := make(map[string]domain.Edge, len(edges))
	edgeOrder := make([]string, 0, len(edges))
	seen := make(map[[2]string]bool, len(edges))
	for _, e := range edges {
		if e.From == e.To {
			return fmt.Errorf("replace graph: edge %s: %w", e.ID, domain.ErrSelfLoop)
		}
		if _, ok := nodeSet[e.From]; !ok {
			return fmt.Errorf("replace graph: edge %s -> %s: %w", e.From, e.To, domain.ErrDanglingEndpoint)
		}
		if _, ok := nodeSet[e.To]; !ok {
			return fmt.Errorf("replace graph: edge %s -> %s: %w", e.From, e.To, domain.ErrDanglingEndpoint)
		}
		pair := [2]string{e.From, e.To}
		if seen[pair] {
			return fmt.Errorf("replace graph: edge %s -> %s: %w", e.From, e.To, domain.ErrDuplicateEdge)
		}
		seen[pair] = true
		if e.ID == "" {
			e = domain.NewEdge(e.From, e.To)
		}
		edgeSet[e.ID] = e
		edgeOrder = append(edgeOrder, e.ID)
	}

	statuses := make(map[string]domain.ExecutionStatus, len(nodeSet))
	for id := range nodeSet {
		statuses[id] = domain.StatusQueued
	}

	s.mu.Lock()
	s.nodes = nodeSet
	s.nodeOrder = order
	s.edges = edgeSet
	s.edgeOrder = edgeOrder
	s.statuses = statuses
	s.mu.Unlock()

	s.hooks.EmitGraphChange(&domain.GraphEvent{
		Timestamp: time.Now(),
		Type:      domain.EventGraphReplace,
	})
	return nil
}

// Node returns a copy of the node by ID.
func (s *Store) Node(id string) (domain.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return domain.Node{}, fmt.Errorf("node %s: %w", id, domain.ErrNodeNotFound)
	}
	return n.Clone(), nil
}

// Nodes returns copies of all nodes in insertion order.
func (s *Store) Nodes() []domain.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, s.nodes[id].Clone())
	}
	return out
}

// Edges returns copies of all edges in insertion order.
func (s *Store) Edges() []domain.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Edge, 0, len(s.edgeOrder))
	for _, id := range s.edgeOrder {
		out = append(out, s.edges[id])
	}
	return out
}

// HasEdge reports whether a (from, to) wire already exists.
func (s *Store) HasEdge(from, to string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.edgeOrder {
		e := s.edges[id]
		if e.From == from && e.To == to {
			return true
		}
	}
	return false
}

// Status returns the authoritative status for a node. Nodes that have never
// been scheduled report pending; absent nodes report unknown.
func (s *Store) Status(id string) domain.ExecutionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.nodes[id]; !ok {
		return domain.StatusUnknown
	}
	if st, ok := s.statuses[id]; ok {
		return st
	}
	return domain.StatusPending
}

// SetStatus writes the status side-table entry for a live node. The caller
// (the state machine) owns the event semantics; the store only records the
// value.
func (s *Store) SetStatus(id string, status domain.ExecutionStatus) error {
	if !status.Valid() {
		return fmt.Errorf("set status %s: unknown status %q", id, status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; !ok {
		return fmt.Errorf("set status %s: %w", id, domain.ErrNodeNotFound)
	}
	s.statuses[id] = status
	return nil
}

// Statuses returns a copy of the whole status side-table.
func (s *Store) Statuses() map[string]domain.ExecutionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.ExecutionStatus, len(s.statuses))
	for k, v := range s.statuses {
		out[k] = v
	}
	return out
}

// Snapshot returns a complete, consistent copy of the graph taken under a
// single read lock.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.Snapshot{
		Nodes:    make([]domain.Node, 0, len(s.nodeOrder)),
		Edges:    make([]domain.Edge, 0, len(s.edgeOrder)),
		Statuses: make(map[string]domain.ExecutionStatus, len(s.statuses)),
		SavedAt:  time.Now(),
	}
	for _, id := range s.nodeOrder {
		snap.Nodes = append(snap.Nodes, s.nodes[id].Clone())
	}
	for _, id := range s.edgeOrder {
		snap.Edges = append(snap.Edges, s.edges[id])
	}
	for k, v := range s.statuses {
		snap.Statuses[k] = v
	}
	return snap
}

// Restore replaces the graph with a snapshot, keeping the recorded statuses
// instead of resetting to queued.
func (s *Store) Restore(snap domain.Snapshot) error {
	if err := s.ReplaceGraph(snap.Nodes, snap.Edges); err != nil {
		return err
	}
	s.mu.Lock()
	for id, st := range snap.Statuses {
		if _, ok := s.nodes[id]; ok && st.Valid() {
			s.statuses[id] = st
		}
	}
	s.mu.Unlock()
	return nil
}

// Roots returns the IDs of nodes with no incoming edges, in insertion
// order. Used by flow-level run orchestration.
func (s *Store) Roots() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	incoming := make(map[string]bool, len(s.nodes))
	for _, eid := range s.edgeOrder {
		incoming[s.edges[eid].To] = true
	}
	var out []string
	for _, id := range s.nodeOrder {
		if !incoming[id] {
			out = append(out, id)
		}
	}
	return out
}

func removeString(list []string, v string) []string {
	for i, s := range list {
		if s == v {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
