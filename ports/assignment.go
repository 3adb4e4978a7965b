package ports

import (
	"context"

	"binstudy/domain/experiment"
)

// AssignmentSource waits for an externally produced assignment record (a
// previous session's log) and returns it once present and shape-valid.
//
// Wait blocks until the record appears or ctx is done; it must be called off
// the experiment-owning goroutine. Implementations validate the record's
// shape before trusting any field.
type AssignmentSource interface {
	Wait(ctx context.Context) (*experiment.Assignment, error)
}
