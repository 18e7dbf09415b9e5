package domain

import "time"

// Snapshot is a complete, self-contained copy of the graph: nodes, edges and
// the execution status side-table. It is what snapshot stores persist and
// what observers read, so it must never expose torn state.
type Snapshot struct {
	Nodes    []Node                     `json:"nodes"`
	Edges    []Edge                     `json:"edges"`
	Statuses map[string]ExecutionStatus `json:"statuses"`
	SavedAt  time.Time                  `json:"saved_at,omitempty"`
}

// Task is the unit of work handed to the agent backend when a node enters
// the running state. Instruction is a single natural-language string built
// from the node's typed config.
type Task struct {
	NodeID      string   `json:"node_id"`
	NodeType    NodeType `json:"node_type"`
	Instruction string   `json:"instruction"`
}
