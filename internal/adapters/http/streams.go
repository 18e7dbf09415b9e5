package http

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/loomworks/weft/pkg/domain"
)

// StreamManager fans engine events out to active SSE connections. The
// editor shows one shared graph, so there is a single broadcast domain
// rather than per-session channels.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan<- string]struct{}
}

// NewStreamManager creates an empty stream manager.
func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan<- string]struct{}),
	}
}

// Subscribe registers a new listener. The returned cancel func must be
// called when the connection closes.
func (sm *StreamManager) Subscribe() (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	sm.subscribers[ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

// Broadcast sends msg to every subscriber, dropping it for slow clients
// rather than blocking the emitting goroutine.
func (sm *StreamManager) Broadcast(msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			slog.Warn("sse client buffer full, dropping message")
		}
	}
}

type streamEnvelope struct {
	Kind  string `json:"kind"`
	Event any    `json:"event"`
}

// Hooks returns lifecycle hooks that broadcast every engine event as a
// JSON envelope. Wire them into the engine via WithLifecycleHooks.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnGraphChange: func(e *domain.GraphEvent) {
			sm.broadcastEnvelope("graph", e)
		},
		OnStatusChange: func(e *domain.StatusEvent) {
			sm.broadcastEnvelope("status", e)
		},
		OnDispatch: func(e *domain.TaskEvent) {
			sm.broadcastEnvelope("dispatch", e)
		},
		OnResult: func(e *domain.TaskEvent) {
			sm.broadcastEnvelope("result", e)
		},
	}
}

func (sm *StreamManager) broadcastEnvelope(kind string, event any) {
	data, err := json.Marshal(streamEnvelope{Kind: kind, Event: event})
	if err != nil {
		slog.Warn("failed to marshal stream event", "kind", kind, "err", err)
		return
	}
	sm.Broadcast(string(data))
}
