// Package agent forwards node instructions to an external agent backend
// over HTTP and feeds its asynchronous replies back through the event
// bridge.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/loomworks/weft/internal/logging"
	"github.com/loomworks/weft/pkg/bridge"
	"github.com/loomworks/weft/pkg/domain"
)

// Dispatcher implements ports.TaskDispatcher against a chat-style agent
// backend: the instruction is appended as a message, and the backend's
// reply arrives on the same request's response body. The reply is folded
// back into the flow by emitting on the task's bridge topic, so from the
// state machine's point of view completion is always asynchronous.
type Dispatcher struct {
	baseURL string
	client  *http.Client
	bridge  *bridge.Bridge
	logger  *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a dispatcher posting to baseURL and emitting
// completions on br.
func NewDispatcher(baseURL string, br *bridge.Bridge, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		bridge:  br,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type appendRequest struct {
	NodeID      string `json:"node_id"`
	NodeType    string `json:"node_type"`
	Instruction string `json:"instruction"`
}

type appendResponse struct {
	Data  map[string]any `json:"data"`
	Error string         `json:"error,omitempty"`
}

// Dispatch posts the instruction and returns as soon as the request is on
// the wire. The response is awaited on a separate goroutine; success and
// failure both surface as bridge emissions, never as a Dispatch error.
func (d *Dispatcher) Dispatch(ctx context.Context, task domain.Task) error {
	body, err := json.Marshal(appendRequest{
		NodeID:      task.NodeID,
		NodeType:    string(task.NodeType),
		Instruction: task.Instruction,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	// The request must not inherit the caller's context: the caller returns
	// once dispatch succeeds, while the backend reply can take much longer.
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost,
		d.baseURL+"/v1/chat/append", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	go d.await(req, task)
	return nil
}

func (d *Dispatcher) await(req *http.Request, task domain.Task) {
	resp, err := d.client.Do(req)
	if err != nil {
		d.emitError(task, fmt.Sprintf("agent backend unreachable: %v", err))
		return
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		d.emitError(task, fmt.Sprintf("failed to read agent reply: %v", err))
		return
	}
	if resp.StatusCode >= 400 {
		d.emitError(task, fmt.Sprintf("agent backend returned %d", resp.StatusCode))
		return
	}

	var reply appendResponse
	if err := json.Unmarshal(raw, &reply); err != nil {
		d.emitError(task, fmt.Sprintf("malformed agent reply: %v", err))
		return
	}
	if reply.Error != "" {
		d.emitError(task, reply.Error)
		return
	}

	d.logger.Debug("agent reply received", "node", task.NodeID, "type", task.NodeType)
	d.bridge.Emit(bridge.ResultTopic(task.NodeType), bridge.TaskResult{
		NodeID: task.NodeID,
		Data:   reply.Data,
	})
}

func (d *Dispatcher) emitError(task domain.Task, msg string) {
	d.logger.Warn("agent task failed", "node", task.NodeID, "err", msg)
	d.bridge.Emit(bridge.ErrorTopic(task.NodeType), bridge.TaskResult{
		NodeID: task.NodeID,
		Err:    msg,
	})
}
