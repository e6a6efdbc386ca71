// Package stages defines the stage-executor contract of the agent-creation
// workflow and one executor per computational stage. The executor set is
// closed: the coordinator sequences concrete types, never a name-keyed
// registry, so there is no "unknown stage" failure mode at runtime.
package stages

import (
	"context"
	"fmt"

	"github.com/voxlane/voxlane/internal/classify"
	"github.com/voxlane/voxlane/internal/knowledge"
	"github.com/voxlane/voxlane/internal/types"
)

// Context carries a workflow snapshot and the prior stages' committed outputs
// into an executor. Executors are stateless between invocations; retrying a
// stage means re-invoking Execute with the same context.
type Context struct {
	Workflow       types.Workflow
	Classification *classify.Result
	Snapshot       *knowledge.Snapshot
}

// Result is a successful stage outcome. Payload is stage-specific and is
// persisted on the stage record.
type Result struct {
	Payload any
}

// Executor is the uniform stage capability the coordinator drives.
type Executor interface {
	Stage() types.Stage
	Execute(ctx context.Context, sc *Context) (*Result, error)
}

// RetryableError marks a transient stage failure the coordinator may retry.
// It never reaches callers directly.
type RetryableError struct {
	Stage types.Stage
	Cause error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("stage %s failed (retryable): %v", e.Stage, e.Cause)
}

func (e *RetryableError) Unwrap() error {
	return e.Cause
}

// FatalError marks a permanent stage failure that terminates the workflow.
// Compensation, when set, records a best-effort rollback that itself failed;
// it is supplementary diagnostics and never masks the original cause.
type FatalError struct {
	Stage        types.Stage
	Cause        error
	Compensation error
}

func (e *FatalError) Error() string {
	if e.Compensation != nil {
		return fmt.Sprintf("stage %s failed (fatal): %v (compensation also failed: %v)", e.Stage, e.Cause, e.Compensation)
	}
	return fmt.Sprintf("stage %s failed (fatal): %v", e.Stage, e.Cause)
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}

// CompensationError records a rollback that itself failed. It is diagnostic
// only: the workflow's terminal status always reflects the original cause.
type CompensationError struct {
	Stage    types.Stage
	Resource string
	Cause    error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation failed at stage %s: could not release %s: %v", e.Stage, e.Resource, e.Cause)
}

func (e *CompensationError) Unwrap() error {
	return e.Cause
}

// transientAware is implemented by collaborator API errors that know whether
// they are worth retrying.
type transientAware interface {
	Transient() bool
}
