// Package bridge provides the publish/subscribe channel that correlates
// asynchronous, out-of-band task completions with graph state. A Bridge is
// always constructor-injected, never a package-level singleton, so tests can
// run isolated instances.
package bridge

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/loomworks/weft/internal/logging"
	"github.com/loomworks/weft/pkg/domain"
)

// Handler receives an emitted payload. Handlers must be idempotent against
// duplicate emissions and tolerate payloads with no matching running node.
type Handler func(payload TaskResult)

// TaskResult is the canonical bridge payload for task completions. NodeID is
// the correlation token threaded through every dispatch; payloads without
// one fall back to the legacy "single running node of this type" lookup.
type TaskResult struct {
	NodeID string         `json:"node_id,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
	Err    string         `json:"error,omitempty"`
}

// Subscription identifies one registered handler for removal.
type Subscription struct {
	topic string
	id    uint64
}

type entry struct {
	id uint64
	fn Handler
}

// Bridge is a process-wide pub/sub channel with named topics. Emit invokes
// handlers synchronously, in registration order, on the calling goroutine.
type Bridge struct {
	mu     sync.RWMutex
	nextID uint64
	topics map[string][]entry
	logger *slog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the structured logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates an empty bridge.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		topics: make(map[string][]entry),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// On registers a handler for a topic and returns its subscription token.
func (b *Bridge) On(topic string, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.topics[topic] = append(b.topics[topic], entry{id: b.nextID, fn: fn})
	return Subscription{topic: topic, id: b.nextID}
}

// Off deregisters a previously registered handler. Unknown subscriptions are
// a no-op.
func (b *Bridge) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.topics[sub.topic]
	for i, e := range entries {
		if e.id == sub.id {
			b.topics[sub.topic] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(b.topics[sub.topic]) == 0 {
		delete(b.topics, sub.topic)
	}
}

// Emit invokes every handler currently registered for the topic,
// synchronously and in registration order. Emitting on a topic with no
// handlers is not an error.
func (b *Bridge) Emit(topic string, payload TaskResult) {
	b.mu.RLock()
	entries := make([]entry, len(b.topics[topic]))
	copy(entries, b.topics[topic])
	b.mu.RUnlock()

	if len(entries) == 0 {
		b.logger.Debug("emit with no handlers", "topic", topic, "node", payload.NodeID)
		return
	}
	for _, e := range entries {
		e.fn(payload)
	}
}

// ResultTopic returns the completion topic for a task family, e.g.
// "websummarizer:result" for web-summarizer nodes.
func ResultTopic(t domain.NodeType) string {
	return fmt.Sprintf("%s:result", family(t))
}

// ErrorTopic returns the error topic for a task family.
func ErrorTopic(t domain.NodeType) string {
	return fmt.Sprintf("%s:error", family(t))
}

func family(t domain.NodeType) string {
	return strings.ReplaceAll(string(t), "-", "")
}
