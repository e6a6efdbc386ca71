package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/voxlane/voxlane/internal/types"
)

// AppendStageRecord inserts one stage attempt record
func (db *DB) AppendStageRecord(ctx context.Context, rec *types.StageRecord) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO stage_records (id, workflow_id, stage, attempt, outcome,
		                            payload, error_detail, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.WorkflowID, rec.Stage, rec.Attempt, rec.Outcome,
		[]byte(rec.Payload), rec.ErrorDetail, rec.StartedAt, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append stage record: %w", err)
	}
	return nil
}

// ListStageRecords retrieves a workflow's stage attempts in execution order
func (db *DB) ListStageRecords(ctx context.Context, workflowID uuid.UUID) ([]types.StageRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, workflow_id, stage, attempt, outcome, payload, error_detail, started_at, completed_at
		 FROM stage_records WHERE workflow_id = $1 ORDER BY started_at`,
		workflowID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stage records: %w", err)
	}
	defer rows.Close()

	var records []types.StageRecord
	for rows.Next() {
		var rec types.StageRecord
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.WorkflowID, &rec.Stage, &rec.Attempt, &rec.Outcome,
			&payload, &rec.ErrorDetail, &rec.StartedAt, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stage record: %w", err)
		}
		rec.Payload = payload
		records = append(records, rec)
	}
	return records, nil
}
