// Package tui renders terminal output for the CLI: markdown via glamour
// and a colored status board for flow runs.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/loomworks/weft/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour,
// auto-detecting the terminal background.
func NewRenderer() func(string) (string, error) {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// statusColors maps execution statuses to terminal colors.
var statusColors = map[domain.ExecutionStatus]string{
	domain.StatusPending:   "#9ca3af",
	domain.StatusQueued:    "#60a5fa",
	domain.StatusRunning:   "#fbbf24",
	domain.StatusCompleted: "#34d399",
	domain.StatusFailed:    "#f87171",
	domain.StatusUnknown:   "#c084fc",
}

// RenderStatusBoard formats a one-line-per-node status view of the graph.
func RenderStatusBoard(snap domain.Snapshot) string {
	p := termenv.ColorProfile()
	var sb strings.Builder

	for _, node := range snap.Nodes {
		status := snap.Statuses[node.ID]
		if status == "" {
			status = domain.StatusPending
		}
		badge := termenv.String(fmt.Sprintf("%-9s", status)).
			Foreground(p.Color(statusColors[status])).
			Bold()
		sb.WriteString(fmt.Sprintf("  %s %s (%s)\n", badge, node.Title, node.Type))
	}
	return sb.String()
}
