// Package observability turns lifecycle hooks into audit trails and
// Prometheus metrics. Everything here is a pure consumer of events; nothing
// in this package writes back into the graph or the state machine.
package observability
