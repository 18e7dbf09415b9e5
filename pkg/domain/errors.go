package domain

import (
	"errors"
	"fmt"
)

// Graph invariant violations. All are recovered locally: the attempted
// mutation is blocked and no state changes.
var (
	// ErrSelfLoop is returned when an edge would connect a node to itself.
	ErrSelfLoop = errors.New("cannot connect a node to itself")

	// ErrDuplicateEdge is returned when an identical (from, to) edge exists.
	ErrDuplicateEdge = errors.New("connection already exists")

	// ErrDanglingEndpoint is returned when an edge references a node that is
	// not part of the graph.
	ErrDanglingEndpoint = errors.New("edge endpoint does not reference a live node")

	// ErrNodeNotFound is returned by lookups and updates on absent nodes.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound is returned by lookups on absent edges.
	ErrEdgeNotFound = errors.New("edge not found")
)

// Execution errors.
var (
	// ErrAlreadyRunning is returned when Run is invoked on a node that is
	// already running. At most one execution per node is in flight.
	ErrAlreadyRunning = errors.New("node is already running")

	// ErrNotImplemented is returned when a node type has no execution
	// handler registered.
	ErrNotImplemented = errors.New("node type not implemented")

	// ErrSnapshotNotFound is returned by snapshot stores for unknown names.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrTemplateNotFound is returned by template sources for unknown names.
	ErrTemplateNotFound = errors.New("template not found")
)

// ValidationError reports missing required configuration discovered before a
// node run is dispatched. The node stays queued.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s (%s)", e.Reason, e.Field)
}

// InvalidTransitionError reports a state machine event that is not legal
// from the node's current status under the default transition set.
type InvalidTransitionError struct {
	From  ExecutionStatus
	Event string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s not allowed from %q", e.Event, e.From)
}
