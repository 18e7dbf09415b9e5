package ports

import (
	"context"

	"github.com/loomworks/weft/pkg/domain"
)

// TaskDispatcher forwards a node's work to the external agent backend.
// Dispatch returns once the task has been accepted; the result arrives
// later, asynchronously, as an event bridge emission on the task family's
// topic. There is no built-in timeout: a node whose task never completes
// stays running until an operator intervenes.
type TaskDispatcher interface {
	Dispatch(ctx context.Context, task domain.Task) error
}
