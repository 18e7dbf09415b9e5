// Package weft is a workflow graph editor engine: a node/edge store with
// structural invariants, a two-click port wiring protocol, a per-node
// execution state machine and an event bridge that folds asynchronous agent
// results back into the graph.
package weft

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loomworks/weft/internal/adapters/memory"
	"github.com/loomworks/weft/internal/logging"
	"github.com/loomworks/weft/internal/runtime"
	"github.com/loomworks/weft/pkg/bridge"
	"github.com/loomworks/weft/pkg/domain"
	"github.com/loomworks/weft/pkg/graph"
	"github.com/loomworks/weft/pkg/observability"
	"github.com/loomworks/weft/pkg/ports"
	"github.com/loomworks/weft/pkg/template"
)

// Version is the library version, set at build time for releases.
var Version = "dev"

// Engine is the high-level entry point. It owns the graph store, the wiring
// machine, the executor and the audit trail, and exposes a simplified API
// for editors, servers and tools.
type Engine struct {
	store      *graph.Store
	wiring     *graph.Wiring
	bridge     *bridge.Bridge
	executor   *runtime.Executor
	dispatcher ports.TaskDispatcher
	snapshots  ports.SnapshotStore
	templates  template.Source
	trail      *observability.Trail
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks alongside the engine's
// own audit trail.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithDispatcher injects the task dispatcher forwarding work to the agent
// backend. Defaults to a local echo dispatcher.
func WithDispatcher(d ports.TaskDispatcher) Option {
	return func(e *Engine) {
		e.dispatcher = d
	}
}

// WithSnapshotStore injects the snapshot persistence backend. Defaults to
// an in-memory store.
func WithSnapshotStore(s ports.SnapshotStore) Option {
	return func(e *Engine) {
		e.snapshots = s
	}
}

// WithTemplateSource injects the template definition source. Without one,
// template operations fail with ErrTemplateNotFound.
func WithTemplateSource(src template.Source) Option {
	return func(e *Engine) {
		e.templates = src
	}
}

// WithBridge injects a shared event bridge, for callers that also emit on
// it (e.g. an out-of-process agent adapter).
func WithBridge(br *bridge.Bridge) Option {
	return func(e *Engine) {
		e.bridge = br
	}
}

// WithTrailCapacity bounds the audit trail's ring buffers.
func WithTrailCapacity(n int) Option {
	return func(e *Engine) {
		e.trail = observability.NewTrail(observability.WithCapacity(n))
	}
}

// New assembles an Engine. All collaborators are optional; the zero
// configuration yields a fully local engine that completes tasks by echo.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.bridge == nil {
		e.bridge = bridge.New(bridge.WithLogger(e.logger))
	}
	if e.dispatcher == nil {
		e.dispatcher = memory.NewEchoDispatcher(e.bridge)
	}
	if e.snapshots == nil {
		e.snapshots = memory.NewSnapshotStore()
	}
	if e.trail == nil {
		e.trail = observability.NewTrail()
	}

	hooks := domain.MergeHooks(e.trail.Hooks(), e.hooks)
	e.store = graph.NewStore(
		graph.WithLogger(e.logger),
		graph.WithHooks(hooks),
	)
	e.wiring = graph.NewWiring(e.store, graph.WithWiringLogger(e.logger))
	e.executor = runtime.NewExecutor(e.store, e.bridge, e.dispatcher,
		runtime.WithLogger(e.logger),
		runtime.WithHooks(hooks),
	)
	return e
}

// Close releases the engine's bridge subscriptions.
func (e *Engine) Close() {
	e.executor.Close()
}

// Bridge returns the event bridge tasks complete on.
func (e *Engine) Bridge() *bridge.Bridge {
	return e.bridge
}

// Trail returns the engine's audit trail.
func (e *Engine) Trail() *observability.Trail {
	return e.trail
}

// --- Graph operations ---

// AddNode stores a new node; see graph.Store.AddNode.
func (e *Engine) AddNode(n domain.Node) (domain.Node, error) {
	return e.store.AddNode(n)
}

// UpdateNode merges a patch into an existing node.
func (e *Engine) UpdateNode(id string, patch graph.NodePatch) (domain.Node, error) {
	return e.store.UpdateNode(id, patch)
}

// DeleteNode removes a node and cascades its edges.
func (e *Engine) DeleteNode(id string) {
	e.store.DeleteNode(id)
}

// Node returns one node by ID.
func (e *Engine) Node(id string) (domain.Node, error) {
	return e.store.Node(id)
}

// Nodes returns all nodes in insertion order.
func (e *Engine) Nodes() []domain.Node {
	return e.store.Nodes()
}

// Edges returns all edges in insertion order.
func (e *Engine) Edges() []domain.Edge {
	return e.store.Edges()
}

// DeleteEdge removes one edge by ID.
func (e *Engine) DeleteEdge(id string) error {
	return e.store.DeleteEdge(id)
}

// Graph returns a consistent snapshot of nodes, edges and statuses.
func (e *Engine) Graph() domain.Snapshot {
	return e.store.Snapshot()
}

// Status returns the execution status for a node ID.
func (e *Engine) Status(id string) domain.ExecutionStatus {
	return e.store.Status(id)
}

// --- Wiring operations ---

// ClickOutput starts a wiring gesture from a node's output port.
func (e *Engine) ClickOutput(nodeID string) error {
	return e.wiring.ClickOutput(nodeID)
}

// ClickInput completes (or rejects) the pending wiring gesture.
func (e *Engine) ClickInput(nodeID string) (domain.Edge, error) {
	return e.wiring.ClickInput(nodeID)
}

// CancelWiring clears any pending wiring gesture.
func (e *Engine) CancelWiring() {
	e.wiring.Cancel()
}

// SelectNode signals a node selection, cancelling a pending gesture aimed
// elsewhere.
func (e *Engine) SelectNode(nodeID string) {
	e.wiring.SelectNode(nodeID)
}

// PendingWiring reports the source node of an in-flight gesture.
func (e *Engine) PendingWiring() (string, bool) {
	return e.wiring.Pending()
}

// --- Execution operations ---

// RunNode dispatches one queued node.
func (e *Engine) RunNode(ctx context.Context, id string) error {
	return e.executor.RunNode(ctx, id)
}

// RunAll dispatches every queued root node.
func (e *Engine) RunAll(ctx context.Context) error {
	return e.executor.RunAll(ctx)
}

// ResetNode re-queues a node that is not running.
func (e *Engine) ResetNode(id string) error {
	return e.executor.Reset(id)
}

// ResetAll re-queues every node that is not running.
func (e *Engine) ResetAll() {
	e.executor.ResetAll()
}

// OverrideStatus force-sets a node's status, bypassing the state machine.
func (e *Engine) OverrideStatus(id string, status domain.ExecutionStatus) error {
	return e.executor.Override(id, status)
}

// --- Template operations ---

// Templates lists the available template definitions.
func (e *Engine) Templates(ctx context.Context) ([]template.Definition, error) {
	if e.templates == nil {
		return []template.Definition{}, nil
	}
	return e.templates.List(ctx)
}

// LoadTemplate instantiates a named template, replacing the current graph.
// It returns the localId -> globalId assignment.
func (e *Engine) LoadTemplate(ctx context.Context, name string) (map[string]string, error) {
	if e.templates == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, name)
	}
	def, err := e.templates.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return template.Instantiate(def, e.store)
}

// InstantiateTemplate expands an in-memory definition into the graph.
func (e *Engine) InstantiateTemplate(def template.Definition) (map[string]string, error) {
	return template.Instantiate(def, e.store)
}

// --- Snapshot operations ---

// SaveSnapshot persists the current graph under a name.
func (e *Engine) SaveSnapshot(ctx context.Context, name string) error {
	snap := e.store.Snapshot()
	if err := e.snapshots.Save(ctx, name, &snap); err != nil {
		return err
	}
	e.logger.Info("snapshot saved", "name", name, "nodes", len(snap.Nodes))
	return nil
}

// LoadSnapshot restores a named snapshot into the graph.
func (e *Engine) LoadSnapshot(ctx context.Context, name string) error {
	snap, err := e.snapshots.Load(ctx, name)
	if err != nil {
		return err
	}
	if err := e.store.Restore(*snap); err != nil {
		return err
	}
	e.logger.Info("snapshot restored", "name", name, "nodes", len(snap.Nodes))
	return nil
}

// DeleteSnapshot removes a named snapshot.
func (e *Engine) DeleteSnapshot(ctx context.Context, name string) error {
	return e.snapshots.Delete(ctx, name)
}

// Snapshots lists stored snapshot names.
func (e *Engine) Snapshots(ctx context.Context) ([]string, error) {
	return e.snapshots.List(ctx)
}
