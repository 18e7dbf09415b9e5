// Package graph projects the workflow graph into Mermaid flowchart syntax
// for documentation and terminal rendering.
package graph

import (
	"fmt"
	"strings"

	"github.com/loomworks/weft/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart from a graph snapshot.
// Node shapes follow type semantics:
//   - trigger: ((circle))
//   - conditional: {diamond}
//   - prompt / agent-call: [/parallelogram/]
//   - data-transform / api-call / web-summarizer: [[subroutine]]
//   - default: [rectangle]
//
// Execution statuses are overlaid as CSS classes when present.
func GenerateMermaid(snap domain.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range snap.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch node.Type {
		case domain.NodeTypeTrigger:
			opener, closer = "((", "))"
		case domain.NodeTypeConditional:
			opener, closer = "{", "}"
		case domain.NodeTypePrompt, domain.NodeTypeAgentCall:
			opener, closer = "[/", "/]"
		case domain.NodeTypeWebSummarizer, domain.NodeTypeDataTransform, domain.NodeTypeAPICall:
			opener, closer = "[[", "]]"
		}

		label := node.Title
		if label == "" {
			label = node.ID
		}
		label = strings.ReplaceAll(label, "\"", "'")
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))
	}

	for _, edge := range snap.Edges {
		sb.WriteString(fmt.Sprintf("    %s --> %s\n",
			sanitizeMermaidID(edge.From), sanitizeMermaidID(edge.To)))
	}

	if len(snap.Statuses) > 0 {
		sb.WriteString("\n    %% Status Styles\n")
		sb.WriteString("    classDef queued fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef running fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef completed fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#c62828,stroke-width:2px,color:#000;\n")

		// Iterate nodes, not the map, for deterministic output.
		for _, node := range snap.Nodes {
			status, ok := snap.Statuses[node.ID]
			if !ok {
				continue
			}
			switch status {
			case domain.StatusQueued, domain.StatusRunning, domain.StatusCompleted, domain.StatusFailed:
				sb.WriteString(fmt.Sprintf("    class %s %s;\n", sanitizeMermaidID(node.ID), status))
			}
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
