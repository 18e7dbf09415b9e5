// Package domain contains the core value types of the Weft workflow graph:
// nodes, edges, execution statuses, typed node configuration, lifecycle
// events and the error taxonomy shared by every other package.
//
// Types here carry no behavior beyond validation and identity; mutation
// rules are enforced by pkg/graph and internal/runtime.
package domain
