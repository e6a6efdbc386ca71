package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/voxlane/voxlane/internal/knowledge"
	"github.com/voxlane/voxlane/internal/types"
)

// MemoryStore is an in-process Store for tests and single-node development
// runs. It copies on read and write so callers never share mutable state.
type MemoryStore struct {
	mu        sync.RWMutex
	workflows map[uuid.UUID]types.Workflow
	records   map[uuid.UUID][]types.StageRecord
	snapshots map[uuid.UUID]*knowledge.Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workflows: make(map[uuid.UUID]types.Workflow),
		records:   make(map[uuid.UUID][]types.StageRecord),
		snapshots: make(map[uuid.UUID]*knowledge.Snapshot),
	}
}

// CreateWorkflow stores a new workflow.
func (m *MemoryStore) CreateWorkflow(_ context.Context, wf *types.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workflows[wf.ID] = *wf
	return nil
}

// UpdateWorkflow replaces an existing workflow.
func (m *MemoryStore) UpdateWorkflow(_ context.Context, wf *types.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workflows[wf.ID]; !ok {
		return &NotFoundError{Resource: "workflow", ID: wf.ID.String()}
	}
	m.workflows[wf.ID] = *wf
	return nil
}

// GetWorkflow returns a copy of the workflow.
func (m *MemoryStore) GetWorkflow(_ context.Context, id uuid.UUID) (*types.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wf, ok := m.workflows[id]
	if !ok {
		return nil, &NotFoundError{Resource: "workflow", ID: id.String()}
	}
	return &wf, nil
}

// ListWorkflows returns the tenant's workflows, newest first.
func (m *MemoryStore) ListWorkflows(_ context.Context, tenantID string) ([]types.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.Workflow
	for _, wf := range m.workflows {
		if wf.TenantID == tenantID {
			out = append(out, wf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AppendStageRecord records one stage attempt.
func (m *MemoryStore) AppendStageRecord(_ context.Context, rec *types.StageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.WorkflowID] = append(m.records[rec.WorkflowID], *rec)
	return nil
}

// ListStageRecords returns a workflow's stage attempts in append order.
func (m *MemoryStore) ListStageRecords(_ context.Context, workflowID uuid.UUID) ([]types.StageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]types.StageRecord(nil), m.records[workflowID]...), nil
}

// SaveSnapshot stores a deep copy of the snapshot.
func (m *MemoryStore) SaveSnapshot(_ context.Context, workflowID uuid.UUID, snap *knowledge.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[workflowID] = snap.Clone()
	return nil
}

// GetSnapshot returns a deep copy of the workflow's snapshot.
func (m *MemoryStore) GetSnapshot(_ context.Context, workflowID uuid.UUID) (*knowledge.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[workflowID]
	if !ok {
		return nil, &NotFoundError{Resource: "snapshot", ID: workflowID.String()}
	}
	return snap.Clone(), nil
}
