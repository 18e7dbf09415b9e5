// Package runtime drives the per-node execution lifecycle: it validates
// configuration, dispatches work to the agent backend and folds asynchronous
// bridge completions back into the graph store.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loomworks/weft/internal/logging"
	"github.com/loomworks/weft/pkg/bridge"
	"github.com/loomworks/weft/pkg/domain"
	"github.com/loomworks/weft/pkg/graph"
	"github.com/loomworks/weft/pkg/ports"
)

// Executor is the effect interpreter around the pure Transition function.
// It is the only writer of node statuses and outputs.
type Executor struct {
	store      *graph.Store
	bridge     *bridge.Bridge
	dispatcher ports.TaskDispatcher
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	subs       []bridge.Subscription
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHooks registers observability hooks for status transitions,
// dispatches and results.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Executor) {
		e.hooks = hooks
	}
}

// NewExecutor wires the executor to the store, the event bridge and the
// backend dispatcher, and subscribes to the result and error topics of
// every task family.
func NewExecutor(store *graph.Store, br *bridge.Bridge, dispatcher ports.TaskDispatcher, opts ...Option) *Executor {
	e := &Executor{
		store:      store,
		bridge:     br,
		dispatcher: dispatcher,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, t := range domain.NodeTypes() {
		nt := t
		e.subs = append(e.subs,
			br.On(bridge.ResultTopic(nt), func(r bridge.TaskResult) {
				e.handleCompletion(nt, r, false)
			}),
			br.On(bridge.ErrorTopic(nt), func(r bridge.TaskResult) {
				e.handleCompletion(nt, r, true)
			}),
		)
	}
	return e
}

// Close deregisters the executor's bridge subscriptions.
func (e *Executor) Close() {
	for _, sub := range e.subs {
		e.bridge.Off(sub)
	}
	e.subs = nil
}

// RunNode executes the queued -> running transition for one node: it
// validates the type-specific required config, marks the node running and
// forwards the composed instruction to the backend. A node whose type has no
// handler, or whose dispatch fails, transitions straight to failed.
func (e *Executor) RunNode(ctx context.Context, id string) error {
	node, err := e.store.Node(id)
	if err != nil {
		return err
	}

	current := e.store.Status(id)
	if _, err := Transition(current, EventDispatch); err != nil {
		if errors.Is(err, domain.ErrAlreadyRunning) {
			e.logger.Debug("run ignored, already running", "node", id)
		}
		return err
	}

	// Refusal leaves the node queued.
	if node.Config != nil {
		if err := node.Config.Validate(); err != nil {
			e.logger.Debug("run refused", "node", id, "err", err)
			return err
		}
	}

	e.setStatus(node, current, domain.StatusRunning, "")

	instruction, err := buildInstruction(node)
	if err != nil {
		e.fail(node, err.Error())
		return err
	}

	task := domain.Task{NodeID: node.ID, NodeType: node.Type, Instruction: instruction}
	e.hooks.EmitDispatch(&domain.TaskEvent{
		Timestamp: time.Now(),
		NodeID:    node.ID,
		NodeType:  node.Type,
		Message:   instruction,
	})

	if err := e.dispatcher.Dispatch(ctx, task); err != nil {
		e.fail(node, fmt.Sprintf("dispatch failed: %v", err))
		return err
	}

	e.logger.Info("node dispatched", "node", node.ID, "type", node.Type)
	return nil
}

// RunAll dispatches every queued root node, in insertion order. Validation
// refusals are collected rather than aborting the flow run.
func (e *Executor) RunAll(ctx context.Context) error {
	var errs []error
	for _, id := range e.store.Roots() {
		if e.store.Status(id) != domain.StatusQueued {
			continue
		}
		if err := e.RunNode(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("node %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Reset re-queues a node. Running nodes cannot be reset.
func (e *Executor) Reset(id string) error {
	node, err := e.store.Node(id)
	if err != nil {
		return err
	}
	current := e.store.Status(id)
	next, err := Transition(current, EventQueue)
	if err != nil {
		return err
	}
	if next != current {
		e.setStatus(node, current, next, "reset")
	}
	return nil
}

// ResetAll re-queues every node that is not currently running.
func (e *Executor) ResetAll() {
	for _, node := range e.store.Nodes() {
		if err := e.Reset(node.ID); err != nil {
			e.logger.Debug("reset skipped", "node", node.ID, "err", err)
		}
	}
}

// Override force-sets a node's status, bypassing validation and the default
// transition set. Operator correction only.
func (e *Executor) Override(id string, status domain.ExecutionStatus) error {
	node, err := e.store.Node(id)
	if err != nil {
		return err
	}
	current := e.store.Status(id)
	if current == status {
		return nil
	}
	e.setStatus(node, current, status, "manual override")
	return nil
}

// handleCompletion folds a bridge emission into graph state. Emissions that
// no longer match a running node (node deleted, already terminal, duplicate
// delivery) are logged and dropped; they are never an error.
func (e *Executor) handleCompletion(t domain.NodeType, r bridge.TaskResult, isError bool) {
	node, ok := e.resolveTarget(t, r)
	if !ok {
		e.logger.Debug("stale bridge emission ignored",
			"type", t, "node", r.NodeID, "is_error", isError)
		e.hooks.EmitResult(&domain.TaskEvent{
			Timestamp: time.Now(),
			NodeID:    r.NodeID,
			NodeType:  t,
			Topic:     topicFor(t, isError),
			IsError:   isError,
			Message:   "stale emission ignored",
		})
		return
	}

	if isError {
		msg := r.Err
		if msg == "" {
			msg = "task failed"
		}
		e.fail(node, msg)
		return
	}
	e.complete(node, r.Data)
}

// resolveTarget locates the node a bridge payload belongs to. Payloads carry
// the node ID as a correlation token; only legacy payloads without one fall
// back to "the single running node of this type", which is ambiguous when
// two nodes of one type run concurrently.
func (e *Executor) resolveTarget(t domain.NodeType, r bridge.TaskResult) (domain.Node, bool) {
	if r.NodeID != "" {
		node, err := e.store.Node(r.NodeID)
		if err != nil || node.Type != t {
			return domain.Node{}, false
		}
		if e.store.Status(node.ID) != domain.StatusRunning {
			return domain.Node{}, false
		}
		return node, true
	}

	var match *domain.Node
	for _, node := range e.store.Nodes() {
		if node.Type != t || e.store.Status(node.ID) != domain.StatusRunning {
			continue
		}
		if match != nil {
			e.logger.Warn("ambiguous uncorrelated emission, dropping",
				"type", t, "candidates", 2)
			return domain.Node{}, false
		}
		n := node
		match = &n
	}
	if match == nil {
		return domain.Node{}, false
	}
	return *match, true
}

func (e *Executor) complete(node domain.Node, data map[string]any) {
	current := e.store.Status(node.ID)
	if _, err := Transition(current, EventComplete); err != nil {
		e.logger.Debug("completion dropped", "node", node.ID, "status", current)
		return
	}

	output := &domain.Output{Data: data}
	if _, err := e.store.UpdateNode(node.ID, graph.NodePatch{Output: output}); err != nil {
		e.logger.Warn("failed to store output", "node", node.ID, "err", err)
	}
	e.setStatus(node, current, domain.StatusCompleted, "")
	e.hooks.EmitResult(&domain.TaskEvent{
		Timestamp: time.Now(),
		NodeID:    node.ID,
		NodeType:  node.Type,
		Topic:     bridge.ResultTopic(node.Type),
	})
}

func (e *Executor) fail(node domain.Node, msg string) {
	current := e.store.Status(node.ID)
	if _, err := Transition(current, EventFail); err != nil {
		e.logger.Debug("failure dropped", "node", node.ID, "status", current)
		return
	}

	output := &domain.Output{Error: msg}
	if _, err := e.store.UpdateNode(node.ID, graph.NodePatch{Output: output}); err != nil {
		e.logger.Warn("failed to store output", "node", node.ID, "err", err)
	}
	e.setStatus(node, current, domain.StatusFailed, msg)
	e.hooks.EmitResult(&domain.TaskEvent{
		Timestamp: time.Now(),
		NodeID:    node.ID,
		NodeType:  node.Type,
		Topic:     bridge.ErrorTopic(node.Type),
		IsError:   true,
		Message:   msg,
	})
}

func (e *Executor) setStatus(node domain.Node, from, to domain.ExecutionStatus, msg string) {
	if err := e.store.SetStatus(node.ID, to); err != nil {
		e.logger.Warn("status write failed", "node", node.ID, "err", err)
		return
	}
	e.hooks.EmitStatusChange(&domain.StatusEvent{
		Timestamp: time.Now(),
		NodeID:    node.ID,
		NodeTitle: node.Title,
		NodeType:  node.Type,
		From:      from,
		To:        to,
		Message:   msg,
	})
}

func topicFor(t domain.NodeType, isError bool) string {
	if isError {
		return bridge.ErrorTopic(t)
	}
	return bridge.ResultTopic(t)
}
