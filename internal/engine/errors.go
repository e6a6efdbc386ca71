package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/voxlane/voxlane/internal/types"
)

// NotFoundError indicates the requested resource does not exist for the
// caller. A resource owned by another tenant reports the same error, so
// existence never leaks across tenant boundaries.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// InvalidStateError indicates an operation that is not legal in the
// workflow's current state, such as validating a workflow that is not
// waiting on a reviewer.
type InvalidStateError struct {
	WorkflowID uuid.UUID
	Status     types.Status
	Stage      types.Stage
	Action     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s workflow %s in status %s (stage %s)", e.Action, e.WorkflowID, e.Status, e.Stage)
}

// ValidationError indicates a request or reviewer submission that was
// rejected before any of it was applied.
type ValidationError struct {
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}
