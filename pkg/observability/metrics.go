package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loomworks/weft/pkg/domain"
)

// Metrics exposes Prometheus collectors fed by lifecycle hooks.
type Metrics struct {
	mutations   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	dispatches  *prometheus.CounterVec
	taskSeconds *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
}

// NewMetrics creates and registers the collectors on reg. Pass
// prometheus.DefaultRegisterer for the process-wide registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weft_graph_mutations_total",
				Help: "Total graph mutations by event type",
			},
			[]string{"event"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weft_status_transitions_total",
				Help: "Total execution status transitions",
			},
			[]string{"from", "to"},
		),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weft_dispatches_total",
				Help: "Total tasks forwarded to the agent backend",
			},
			[]string{"node_type"},
		),
		taskSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "weft_task_duration_seconds",
				Help: "Time between dispatch and bridge result per node type",
			},
			[]string{"node_type", "outcome"},
		),
		started: make(map[string]time.Time),
	}
	reg.MustRegister(m.mutations, m.transitions, m.dispatches, m.taskSeconds)
	return m
}

// Hooks returns lifecycle hooks that record into the collectors. Safe for
// concurrent use; results may arrive on backend goroutines.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnGraphChange: func(e *domain.GraphEvent) {
			m.mutations.WithLabelValues(string(e.Type)).Inc()
		},
		OnStatusChange: func(e *domain.StatusEvent) {
			m.transitions.WithLabelValues(string(e.From), string(e.To)).Inc()
		},
		OnDispatch: func(e *domain.TaskEvent) {
			m.dispatches.WithLabelValues(string(e.NodeType)).Inc()
			m.mu.Lock()
			m.started[e.NodeID] = e.Timestamp
			m.mu.Unlock()
		},
		OnResult: func(e *domain.TaskEvent) {
			m.mu.Lock()
			start, ok := m.started[e.NodeID]
			if ok {
				delete(m.started, e.NodeID)
			}
			m.mu.Unlock()
			if !ok {
				return
			}
			outcome := "completed"
			if e.IsError {
				outcome = "failed"
			}
			m.taskSeconds.WithLabelValues(string(e.NodeType), outcome).
				Observe(e.Timestamp.Sub(start).Seconds())
		},
	}
}
