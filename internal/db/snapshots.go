package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/voxlane/voxlane/internal/engine"
	"github.com/voxlane/voxlane/internal/knowledge"
)

// SaveSnapshot stores or replaces the workflow's knowledge snapshot
func (db *DB) SaveSnapshot(ctx context.Context, workflowID uuid.UUID, snap *knowledge.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO snapshots (workflow_id, data, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (workflow_id) DO UPDATE SET data = $2, updated_at = NOW()`,
		workflowID, data,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// GetSnapshot retrieves the workflow's knowledge snapshot
func (db *DB) GetSnapshot(ctx context.Context, workflowID uuid.UUID) (*knowledge.Snapshot, error) {
	var data []byte
	err := db.pool.QueryRow(ctx,
		`SELECT data FROM snapshots WHERE workflow_id = $1`,
		workflowID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &engine.NotFoundError{Resource: "snapshot", ID: workflowID.String()}
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap knowledge.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &snap, nil
}
