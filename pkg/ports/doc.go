// Package ports defines the boundary interfaces of the engine: how graph
// snapshots are persisted and how node work is handed to the external agent
// backend. Adapters live under internal/adapters.
package ports
