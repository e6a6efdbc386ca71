package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/voxlane/voxlane/internal/knowledge"
	"github.com/voxlane/voxlane/internal/types"
)

// Store persists workflows, their stage attempts and their knowledge
// snapshots. Implementations return *NotFoundError for missing records.
type Store interface {
	CreateWorkflow(ctx context.Context, wf *types.Workflow) error
	UpdateWorkflow(ctx context.Context, wf *types.Workflow) error
	GetWorkflow(ctx context.Context, id uuid.UUID) (*types.Workflow, error)
	ListWorkflows(ctx context.Context, tenantID string) ([]types.Workflow, error)

	AppendStageRecord(ctx context.Context, rec *types.StageRecord) error
	ListStageRecords(ctx context.Context, workflowID uuid.UUID) ([]types.StageRecord, error)

	SaveSnapshot(ctx context.Context, workflowID uuid.UUID, snap *knowledge.Snapshot) error
	GetSnapshot(ctx context.Context, workflowID uuid.UUID) (*knowledge.Snapshot, error)
}
