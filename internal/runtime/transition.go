package runtime

import "github.com/loomworks/weft/pkg/domain"

// Event is an input to the node execution state machine.
type Event string

const (
	// EventQueue schedules a node: creation, explicit reset, template load.
	EventQueue Event = "queue"
	// EventDispatch starts execution of a queued node.
	EventDispatch Event = "dispatch"
	// EventComplete records a successful result for a running node.
	EventComplete Event = "complete"
	// EventFail records an error result for a running node.
	EventFail Event = "fail"
)

// Transition is the pure state machine for one node:
//
//	pending/unknown -> queued -> running -> completed | failed
//
// It has no side effects; the Executor interprets the resulting status into
// store writes, dispatches and timeline events. Manual operator overrides
// bypass this function entirely.
func Transition(from domain.ExecutionStatus, ev Event) (domain.ExecutionStatus, error) {
	switch ev {
	case EventQueue:
		// Running nodes cannot be re-queued; everything else can, which is
		// what lets "reset layout" re-arm completed and failed nodes.
		if from == domain.StatusRunning {
			return from, &domain.InvalidTransitionError{From: from, Event: string(ev)}
		}
		return domain.StatusQueued, nil

	case EventDispatch:
		if from == domain.StatusRunning {
			return from, domain.ErrAlreadyRunning
		}
		if from != domain.StatusQueued {
			return from, &domain.InvalidTransitionError{From: from, Event: string(ev)}
		}
		return domain.StatusRunning, nil

	case EventComplete:
		if from != domain.StatusRunning {
			return from, &domain.InvalidTransitionError{From: from, Event: string(ev)}
		}
		return domain.StatusCompleted, nil

	case EventFail:
		if from != domain.StatusRunning {
			return from, &domain.InvalidTransitionError{From: from, Event: string(ev)}
		}
		return domain.StatusFailed, nil
	}

	return from, &domain.InvalidTransitionError{From: from, Event: string(ev)}
}
