package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/loomworks/weft/pkg/domain"
)

// DefaultCapacity bounds each ring buffer when no capacity is given.
const DefaultCapacity = 200

// TimelineEntry is one audit record: a graph mutation or a status
// transition, rendered into a single human-readable line plus the raw
// fields for programmatic consumers.
type TimelineEntry struct {
	Timestamp time.Time        `json:"timestamp"`
	Type      domain.EventType `json:"type"`
	NodeID    string           `json:"node_id,omitempty"`
	Message   string           `json:"message"`
}

// ConsoleEntry is one line of the execution console: dispatched
// instructions and bridge results, in arrival order.
type ConsoleEntry struct {
	Timestamp time.Time       `json:"timestamp"`
	NodeID    string          `json:"node_id"`
	NodeType  domain.NodeType `json:"node_type"`
	IsError   bool            `json:"is_error,omitempty"`
	Message   string          `json:"message"`
}

// Trail keeps two capped, append-only ring buffers: a timeline of graph
// and status changes, and a console of dispatch/result traffic. Oldest
// entries are evicted first. Safe for concurrent use.
type Trail struct {
	mu       sync.RWMutex
	capacity int
	timeline []TimelineEntry
	console  []ConsoleEntry
}

// TrailOption configures a Trail.
type TrailOption func(*Trail)

// WithCapacity bounds both ring buffers to n entries each.
func WithCapacity(n int) TrailOption {
	return func(tr *Trail) {
		if n > 0 {
			tr.capacity = n
		}
	}
}

// NewTrail creates an empty audit trail.
func NewTrail(opts ...TrailOption) *Trail {
	tr := &Trail{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(tr)
	}
	return tr
}

// Hooks returns lifecycle hooks that feed the trail. Combine with other
// hook sets via domain.MergeHooks.
func (tr *Trail) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnGraphChange:  tr.recordGraphChange,
		OnStatusChange: tr.recordStatusChange,
		OnDispatch:     tr.recordDispatch,
		OnResult:       tr.recordResult,
	}
}

// Timeline returns the retained timeline entries, oldest first.
func (tr *Trail) Timeline() []TimelineEntry {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	out := make([]TimelineEntry, len(tr.timeline))
	copy(out, tr.timeline)
	return out
}

// Console returns the retained console entries, oldest first.
func (tr *Trail) Console() []ConsoleEntry {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	out := make([]ConsoleEntry, len(tr.console))
	copy(out, tr.console)
	return out
}

// Clear drops all retained entries.
func (tr *Trail) Clear() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.timeline = nil
	tr.console = nil
}

func (tr *Trail) recordGraphChange(e *domain.GraphEvent) {
	var msg string
	switch e.Type {
	case domain.EventNodeAdded, domain.EventNodeUpdated, domain.EventNodeRemoved:
		msg = fmt.Sprintf("%s: %s", e.Type, e.NodeTitle)
		if e.NodeTitle == "" {
			msg = fmt.Sprintf("%s: %s", e.Type, e.NodeID)
		}
	case domain.EventEdgeAdded, domain.EventEdgeRemoved:
		msg = fmt.Sprintf("%s: %s -> %s", e.Type, e.From, e.To)
	default:
		msg = string(e.Type)
	}
	tr.appendTimeline(TimelineEntry{
		Timestamp: e.Timestamp,
		Type:      e.Type,
		NodeID:    e.NodeID,
		Message:   msg,
	})
}

func (tr *Trail) recordStatusChange(e *domain.StatusEvent) {
	title := e.NodeTitle
	if title == "" {
		title = e.NodeID
	}
	msg := fmt.Sprintf("%s: %s -> %s", title, e.From, e.To)
	if e.Message != "" {
		msg += " (" + e.Message + ")"
	}
	tr.appendTimeline(TimelineEntry{
		Timestamp: e.Timestamp,
		Type:      domain.EventStatusChange,
		NodeID:    e.NodeID,
		Message:   msg,
	})
}

func (tr *Trail) recordDispatch(e *domain.TaskEvent) {
	tr.appendConsole(ConsoleEntry{
		Timestamp: e.Timestamp,
		NodeID:    e.NodeID,
		NodeType:  e.NodeType,
		Message:   e.Message,
	})
}

func (tr *Trail) recordResult(e *domain.TaskEvent) {
	msg := e.Message
	if msg == "" {
		msg = e.Topic
	}
	tr.appendConsole(ConsoleEntry{
		Timestamp: e.Timestamp,
		NodeID:    e.NodeID,
		NodeType:  e.NodeType,
		IsError:   e.IsError,
		Message:   msg,
	})
}

func (tr *Trail) appendTimeline(entry TimelineEntry) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.timeline = append(tr.timeline, entry)
	if len(tr.timeline) > tr.capacity {
		tr.timeline = tr.timeline[len(tr.timeline)-tr.capacity:]
	}
}

func (tr *Trail) appendConsole(entry ConsoleEntry) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.console = append(tr.console, entry)
	if len(tr.console) > tr.capacity {
		tr.console = tr.console[len(tr.console)-tr.capacity:]
	}
}
