package graph

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/loomworks/weft/internal/logging"
	"github.com/loomworks/weft/pkg/domain"
)

// Wiring is the two-click protocol that turns discrete port clicks into
// validated edge creation: Idle -> (output clicked) -> AwaitingTarget ->
// (input clicked) -> Idle. Starting a new selection always clears any prior
// pending state, so at most one wiring gesture exists at a time.
type Wiring struct {
	mu     sync.Mutex
	store  *Store
	from   string // node awaiting a target; empty means idle
	logger *slog.Logger
}

// WiringOption configures a Wiring machine.
type WiringOption func(*Wiring)

// WithWiringLogger sets the structured logger.
func WithWiringLogger(logger *slog.Logger) WiringOption {
	return func(w *Wiring) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWiring creates an idle wiring machine over the store.
func NewWiring(store *Store, opts ...WiringOption) *Wiring {
	w := &Wiring{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ClickOutput records a click on a node's output port and enters
// AwaitingTarget. Clicking another output while already awaiting simply
// restarts the gesture from the new source.
func (w *Wiring) ClickOutput(nodeID string) error {
	if _, err := w.store.Node(nodeID); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.from != "" && w.from != nodeID {
		w.logger.Debug("wiring restarted from new source", "previous", w.from, "from", nodeID)
	}
	w.from = nodeID
	return nil
}

// ClickInput completes the gesture against a node's input port. On success
// the edge is created through the store and the machine returns to Idle. All
// rejections (self-loop, duplicate, dangling) also return the machine to
// Idle; the error carries the user-visible message.
func (w *Wiring) ClickInput(nodeID string) (domain.Edge, error) {
	w.mu.Lock()
	from := w.from
	w.from = ""
	w.mu.Unlock()

	if from == "" {
		// Input click with no pending source is not a gesture.
		return domain.Edge{}, nil
	}
	if from == nodeID {
		w.logger.Debug("wiring rejected", "reason", "self loop", "node", nodeID)
		return domain.Edge{}, domain.ErrSelfLoop
	}

	edge, err := w.store.AddEdge(from, nodeID)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEdge) {
			w.logger.Debug("wiring rejected", "reason", "duplicate", "from", from, "to", nodeID)
		}
		return domain.Edge{}, err
	}
	return edge, nil
}

// Cancel clears any pending source silently. Canvas clicks and node
// selection changes funnel here.
func (w *Wiring) Cancel() {
	w.mu.Lock()
	w.from = ""
	w.mu.Unlock()
}

// SelectNode handles a node-select event: selecting any node other than the
// pending source cancels the gesture.
func (w *Wiring) SelectNode(nodeID string) {
	w.mu.Lock()
	if w.from != "" && w.from != nodeID {
		w.from = ""
	}
	w.mu.Unlock()
}

// Pending returns the node awaiting a target, if the machine is in
// AwaitingTarget.
func (w *Wiring) Pending() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.from, w.from != ""
}
