package domain

import "fmt"

// Default port names. Nodes currently expose a single output and a single
// input; the fields exist so multi-port wiring can land without changing
// From/To semantics.
const (
	PortOut = "out"
	PortIn  = "in"
)

// Edge is a directed wire from one node's output port to another node's
// input port.
type Edge struct {
	ID       string `json:"id" yaml:"id"`
	From     string `json:"from" yaml:"from"`
	To       string `json:"to" yaml:"to"`
	FromPort string `json:"fromPort,omitempty" yaml:"fromPort,omitempty"`
	ToPort   string `json:"toPort,omitempty" yaml:"toPort,omitempty"`
}

// NewEdge builds an edge between two nodes with a freshly derived ID.
func NewEdge(from, to string) Edge {
	return Edge{
		ID:       fmt.Sprintf("edge-%s-%s-%s", from, to, salt()),
		From:     from,
		To:       to,
		FromPort: PortOut,
		ToPort:   PortIn,
	}
}
