package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NodeType identifies the behavior family of a node. The set is fixed:
// changing the semantics of a node means deleting it and creating a new one.
type NodeType string

const (
	NodeTypePrompt        NodeType = "prompt"
	NodeTypeAgentCall     NodeType = "agent-call"
	NodeTypeConditional   NodeType = "conditional"
	NodeTypeWebSummarizer NodeType = "web-summarizer"
	NodeTypeDataTransform NodeType = "data-transform"
	NodeTypeAPICall       NodeType = "api-call"
	NodeTypeTrigger       NodeType = "trigger"
	NodeTypeWait          NodeType = "wait"
	NodeTypeCustom        NodeType = "custom"
)

// NodeTypes lists every valid node type in declaration order.
func NodeTypes() []NodeType {
	return []NodeType{
		NodeTypePrompt,
		NodeTypeAgentCall,
		NodeTypeConditional,
		NodeTypeWebSummarizer,
		NodeTypeDataTransform,
		NodeTypeAPICall,
		NodeTypeTrigger,
		NodeTypeWait,
		NodeTypeCustom,
	}
}

// Valid reports whether t is a member of the fixed enumeration.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypePrompt, NodeTypeAgentCall, NodeTypeConditional,
		NodeTypeWebSummarizer, NodeTypeDataTransform, NodeTypeAPICall,
		NodeTypeTrigger, NodeTypeWait, NodeTypeCustom:
		return true
	}
	return false
}

// Node represents one unit of configurable, executable work in the graph.
//
// ID and Type are immutable after creation. Config is freely mutable by the
// Inspector collaborator; Output and the status side-table are written only
// by the runtime.
type Node struct {
	ID          string   `json:"id" yaml:"id"`
	Type        NodeType `json:"type" yaml:"type"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`

	// Config holds the type-specific configuration variant. Its concrete
	// type must match Type (see ConfigFor).
	Config Config `json:"config,omitempty" yaml:"config,omitempty"`

	// Output is the result of the most recent execution, or nil if the node
	// has never run to completion or failure.
	Output *Output `json:"output,omitempty" yaml:"output,omitempty"`
}

// Output captures the terminal result of a node run. Exactly one of Data or
// Error is meaningful: Data on completion, Error on failure.
type Output struct {
	Data  map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	Error string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewNodeID builds a globally unique, stable node ID from the type tag, a
// slug of the human title and a random salt. IDs are never reused.
func NewNodeID(t NodeType, title string) string {
	return fmt.Sprintf("%s-%s-%s", t, slugify(title), salt())
}

// Clone returns a deep copy of the node so callers can hand out snapshots
// without exposing internal state to mutation.
func (n Node) Clone() Node {
	out := n
	if n.Config != nil {
		out.Config = n.Config.clone()
	}
	if n.Output != nil {
		o := Output{Error: n.Output.Error}
		if n.Output.Data != nil {
			o.Data = make(map[string]any, len(n.Output.Data))
			for k, v := range n.Output.Data {
				o.Data[k] = v
			}
		}
		out.Output = &o
	}
	return out
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "node"
	}
	return out
}

func salt() string {
	return uuid.NewString()[:8]
}
