package memory

import (
	"context"
	"fmt"

	"github.com/loomworks/weft/pkg/bridge"
	"github.com/loomworks/weft/pkg/domain"
)

// EchoDispatcher is a local task dispatcher for offline use and demos: it
// immediately emits a successful bridge result echoing the instruction, so
// flows complete without an agent backend.
type EchoDispatcher struct {
	bridge *bridge.Bridge
}

// NewEchoDispatcher wires the dispatcher to the event bridge it will emit
// completions on.
func NewEchoDispatcher(br *bridge.Bridge) *EchoDispatcher {
	return &EchoDispatcher{bridge: br}
}

// Dispatch emits the echo result synchronously on the task's result topic.
func (d *EchoDispatcher) Dispatch(_ context.Context, task domain.Task) error {
	d.bridge.Emit(bridge.ResultTopic(task.NodeType), bridge.TaskResult{
		NodeID: task.NodeID,
		Data: map[string]any{
			"echo": fmt.Sprintf("[%s] %s", task.NodeType, task.Instruction),
		},
	})
	return nil
}
