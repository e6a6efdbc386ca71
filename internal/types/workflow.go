// Package types provides type definitions for structured data shared across the voxlane engine.
package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Stage identifies one phase of the agent-creation workflow.
type Stage string

// Workflow stages, in execution order.
const (
	StageCreated            Stage = "created"
	StageClassifying        Stage = "classifying"
	StageExtracting         Stage = "extracting"
	StageAwaitingValidation Stage = "awaiting_validation"
	StageDeploying          Stage = "deploying"
)

// Status represents the overall workflow status.
type Status string

// Workflow statuses. Succeeded, Failed and Aborted are terminal; once a
// workflow reaches one of them its snapshot never changes again.
const (
	StatusRunning       Status = "running"
	StatusWaitingOnUser Status = "waiting_on_user"
	StatusSucceeded     Status = "succeeded"
	StatusFailed        Status = "failed"
	StatusAborted       Status = "aborted"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusAborted
}

// Outcome classifies the result of a single stage attempt.
type Outcome string

// Stage attempt outcomes.
const (
	OutcomeOK             Outcome = "ok"
	OutcomeRetryableError Outcome = "retryable_error"
	OutcomeFatalError     Outcome = "fatal_error"
)

// DeploymentResult is the terminal payload of a succeeded workflow.
type DeploymentResult struct {
	VoiceAgentID string `json:"voice_agent_id"`
	PhoneNumber  string `json:"phone_number"`
}

// Workflow is one end-to-end attempt to turn a business URL into a deployed
// voice agent for one tenant. A workflow belongs to exactly one tenant for
// its entire lifetime.
type Workflow struct {
	ID           uuid.UUID         `json:"id"`
	TenantID     string            `json:"tenant_id"`
	BusinessURL  string            `json:"business_url"`
	AgentName    string            `json:"agent_name"`
	CurrentStage Stage             `json:"current_stage"`
	Status       Status            `json:"status"`
	Result       *DeploymentResult `json:"result,omitempty"`
	ErrorDetail  string            `json:"error_detail,omitempty"`
	AreaCode     string            `json:"area_code,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// StageRecord is one attempt at executing a stage within a workflow. A
// retried stage produces one record per attempt.
type StageRecord struct {
	ID          uuid.UUID       `json:"id"`
	WorkflowID  uuid.UUID       `json:"workflow_id"`
	Stage       Stage           `json:"stage"`
	Attempt     int             `json:"attempt"`
	Outcome     Outcome         `json:"outcome"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	ErrorDetail string          `json:"error_detail,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
}

// ProgressEvent is an ephemeral stage-transition notification. Losing one
// never affects workflow correctness; progress is observability, not control.
type ProgressEvent struct {
	WorkflowID uuid.UUID `json:"workflow_id"`
	Stage      Stage     `json:"stage"`
	Percent    int       `json:"percent"`
	Timestamp  time.Time `json:"timestamp"`
	Detail     string    `json:"detail,omitempty"`
}
