package observability_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/weft/pkg/domain"
	"github.com/loomworks/weft/pkg/observability"
)

func TestTrail_RecordsTimelineAndConsole(t *testing.T) {
	tr := observability.NewTrail()
	hooks := tr.Hooks()

	hooks.EmitGraphChange(&domain.GraphEvent{
		Timestamp: time.Now(),
		Type:      domain.EventNodeAdded,
		NodeID:    "prompt-hello-abc12345",
		NodeTitle: "Hello",
	})
	hooks.EmitStatusChange(&domain.StatusEvent{
		Timestamp: time.Now(),
		NodeID:    "prompt-hello-abc12345",
		NodeTitle: "Hello",
		From:      domain.StatusQueued,
		To:        domain.StatusRunning,
	})
	hooks.EmitDispatch(&domain.TaskEvent{
		Timestamp: time.Now(),
		NodeID:    "prompt-hello-abc12345",
		NodeType:  domain.NodeTypePrompt,
		Message:   "say hello",
	})
	hooks.EmitResult(&domain.TaskEvent{
		Timestamp: time.Now(),
		NodeID:    "prompt-hello-abc12345",
		NodeType:  domain.NodeTypePrompt,
		Topic:     "prompt:error",
		IsError:   true,
		Message:   "backend said no",
	})

	timeline := tr.Timeline()
	require.Len(t, timeline, 2)
	assert.Equal(t, domain.EventNodeAdded, timeline[0].Type)
	assert.Contains(t, timeline[0].Message, "Hello")
	assert.Equal(t, domain.EventStatusChange, timeline[1].Type)
	assert.Contains(t, timeline[1].Message, "queued -> running")

	console := tr.Console()
	require.Len(t, console, 2)
	assert.Equal(t, "say hello", console[0].Message)
	assert.True(t, console[1].IsError)
}

func TestTrail_CapsAtCapacity(t *testing.T) {
	tr := observability.NewTrail(observability.WithCapacity(5))
	hooks := tr.Hooks()

	for i := 0; i < 12; i++ {
		hooks.EmitStatusChange(&domain.StatusEvent{
			NodeID: fmt.Sprintf("n-%d", i),
			From:   domain.StatusQueued,
			To:     domain.StatusRunning,
		})
	}

	timeline := tr.Timeline()
	require.Len(t, timeline, 5, "oldest entries are evicted")
	assert.Equal(t, "n-7", timeline[0].NodeID)
	assert.Equal(t, "n-11", timeline[4].NodeID)
}

func TestTrail_Clear(t *testing.T) {
	tr := observability.NewTrail()
	tr.Hooks().EmitStatusChange(&domain.StatusEvent{NodeID: "n"})
	tr.Hooks().EmitDispatch(&domain.TaskEvent{NodeID: "n"})

	tr.Clear()
	assert.Empty(t, tr.Timeline())
	assert.Empty(t, tr.Console())
}

func TestMetrics_CountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()

	hooks.EmitGraphChange(&domain.GraphEvent{Type: domain.EventNodeAdded})
	hooks.EmitGraphChange(&domain.GraphEvent{Type: domain.EventNodeAdded})
	hooks.EmitGraphChange(&domain.GraphEvent{Type: domain.EventEdgeAdded})
	hooks.EmitStatusChange(&domain.StatusEvent{
		From: domain.StatusQueued,
		To:   domain.StatusRunning,
	})

	start := time.Now()
	hooks.EmitDispatch(&domain.TaskEvent{
		Timestamp: start,
		NodeID:    "n",
		NodeType:  domain.NodeTypeWebSummarizer,
	})
	hooks.EmitResult(&domain.TaskEvent{
		Timestamp: start.Add(250 * time.Millisecond),
		NodeID:    "n",
		NodeType:  domain.NodeTypeWebSummarizer,
	})

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			key := f.GetName()
			for _, l := range metric.GetLabel() {
				key += "{" + l.GetName() + "=" + l.GetValue() + "}"
			}
			switch {
			case metric.GetCounter() != nil:
				values[key] = metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				values[key] = float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}

	assert.Equal(t, float64(2), values["weft_graph_mutations_total{event=node_added}"])
	assert.Equal(t, float64(1), values["weft_graph_mutations_total{event=edge_added}"])
	assert.Equal(t, float64(1), values["weft_status_transitions_total{from=queued}{to=running}"])
	assert.Equal(t, float64(1), values["weft_dispatches_total{node_type=web-summarizer}"])
	assert.Equal(t, float64(1), values["weft_task_duration_seconds{node_type=web-summarizer}{outcome=completed}"])

	// A result without a preceding dispatch never observes a duration.
	m.Hooks().EmitResult(&domain.TaskEvent{NodeID: "ghost", NodeType: domain.NodeTypePrompt})
	_, err = reg.Gather()
	require.NoError(t, err)
}
