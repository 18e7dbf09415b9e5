package domain

import "time"

// EventType categorizes timeline events.
type EventType string

const (
	EventNodeAdded    EventType = "node_added"
	EventNodeUpdated  EventType = "node_updated"
	EventNodeRemoved  EventType = "node_removed"
	EventEdgeAdded    EventType = "edge_added"
	EventEdgeRemoved  EventType = "edge_removed"
	EventGraphReplace EventType = "graph_replaced"
	EventStatusChange EventType = "status_change"
	EventDispatch     EventType = "dispatch"
	EventResult       EventType = "result"
	EventStale        EventType = "stale_event"
)

// GraphEvent describes a structural mutation of the graph.
type GraphEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	NodeID    string    `json:"node_id,omitempty"`
	NodeTitle string    `json:"node_title,omitempty"`
	EdgeID    string    `json:"edge_id,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
}

// StatusEvent describes an execution status transition on one node.
type StatusEvent struct {
	Timestamp time.Time       `json:"timestamp"`
	NodeID    string          `json:"node_id"`
	NodeTitle string          `json:"node_title,omitempty"`
	NodeType  NodeType        `json:"node_type,omitempty"`
	From      ExecutionStatus `json:"from"`
	To        ExecutionStatus `json:"to"`
	Message   string          `json:"message,omitempty"`
}

// TaskEvent describes work crossing the boundary to the agent backend:
// a dispatch going out or a result coming back over the event bridge.
type TaskEvent struct {
	Timestamp time.Time `json:"timestamp"`
	NodeID    string    `json:"node_id"`
	NodeType  NodeType  `json:"node_type"`
	Topic     string    `json:"topic,omitempty"`
	IsError   bool      `json:"is_error,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// LifecycleHooks are observability callbacks fired after the corresponding
// mutation has been applied. Hooks run synchronously on the mutating
// goroutine; they must not call back into the store.
type LifecycleHooks struct {
	OnGraphChange  func(*GraphEvent)
	OnStatusChange func(*StatusEvent)
	OnDispatch     func(*TaskEvent)
	OnResult       func(*TaskEvent)
}

// MergeHooks fans one event out to every hook set, in argument order.
func MergeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnGraphChange: func(e *GraphEvent) {
			for _, h := range hooks {
				if h.OnGraphChange != nil {
					h.OnGraphChange(e)
				}
			}
		},
		OnStatusChange: func(e *StatusEvent) {
			for _, h := range hooks {
				if h.OnStatusChange != nil {
					h.OnStatusChange(e)
				}
			}
		},
		OnDispatch: func(e *TaskEvent) {
			for _, h := range hooks {
				if h.OnDispatch != nil {
					h.OnDispatch(e)
				}
			}
		},
		OnResult: func(e *TaskEvent) {
			for _, h := range hooks {
				if h.OnResult != nil {
					h.OnResult(e)
				}
			}
		},
	}
}

// emit helpers tolerate nil callbacks so call sites stay flat.

func (h LifecycleHooks) EmitGraphChange(e *GraphEvent) {
	if h.OnGraphChange != nil {
		h.OnGraphChange(e)
	}
}

func (h LifecycleHooks) EmitStatusChange(e *StatusEvent) {
	if h.OnStatusChange != nil {
		h.OnStatusChange(e)
	}
}

func (h LifecycleHooks) EmitDispatch(e *TaskEvent) {
	if h.OnDispatch != nil {
		h.OnDispatch(e)
	}
}

func (h LifecycleHooks) EmitResult(e *TaskEvent) {
	if h.OnResult != nil {
		h.OnResult(e)
	}
}
