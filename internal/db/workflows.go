package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/voxlane/voxlane/internal/engine"
	"github.com/voxlane/voxlane/internal/types"
)

// CreateWorkflow inserts a new workflow record
func (db *DB) CreateWorkflow(ctx context.Context, wf *types.Workflow) error {
	resultJSON, err := marshalResult(wf.Result)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO workflows (id, tenant_id, business_url, agent_name, current_stage,
		                        status, result, error_detail, area_code, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		wf.ID, wf.TenantID, wf.BusinessURL, wf.AgentName, wf.CurrentStage,
		wf.Status, resultJSON, wf.ErrorDetail, wf.AreaCode, wf.CreatedAt, wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create workflow: %w", err)
	}
	return nil
}

// UpdateWorkflow replaces the mutable fields of a workflow
func (db *DB) UpdateWorkflow(ctx context.Context, wf *types.Workflow) error {
	resultJSON, err := marshalResult(wf.Result)
	if err != nil {
		return err
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE workflows
		 SET current_stage = $1, status = $2, result = $3, error_detail = $4, updated_at = $5
		 WHERE id = $6`,
		wf.CurrentStage, wf.Status, resultJSON, wf.ErrorDetail, wf.UpdatedAt, wf.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &engine.NotFoundError{Resource: "workflow", ID: wf.ID.String()}
	}
	return nil
}

// GetWorkflow retrieves a workflow by id
func (db *DB) GetWorkflow(ctx context.Context, id uuid.UUID) (*types.Workflow, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, tenant_id, business_url, agent_name, current_stage, status,
		        result, error_detail, area_code, created_at, updated_at
		 FROM workflows WHERE id = $1`,
		id,
	)
	wf, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &engine.NotFoundError{Resource: "workflow", ID: id.String()}
		}
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return wf, nil
}

// ListWorkflows retrieves a tenant's workflows, newest first
func (db *DB) ListWorkflows(ctx context.Context, tenantID string) ([]types.Workflow, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, tenant_id, business_url, agent_name, current_stage, status,
		        result, error_detail, area_code, created_at, updated_at
		 FROM workflows WHERE tenant_id = $1 ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []types.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		workflows = append(workflows, *wf)
	}
	return workflows, nil
}

func marshalResult(result *types.DeploymentResult) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deployment result: %w", err)
	}
	return data, nil
}

func scanWorkflow(row pgx.Row) (*types.Workflow, error) {
	var wf types.Workflow
	var resultJSON []byte
	err := row.Scan(&wf.ID, &wf.TenantID, &wf.BusinessURL, &wf.AgentName, &wf.CurrentStage,
		&wf.Status, &resultJSON, &wf.ErrorDetail, &wf.AreaCode, &wf.CreatedAt, &wf.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(resultJSON) > 0 {
		var result types.DeploymentResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, fmt.Errorf("failed to parse deployment result: %w", err)
		}
		wf.Result = &result
	}
	return &wf, nil
}
