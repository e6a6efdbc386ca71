// Package db provides PostgreSQL persistence for workflows, stage records,
// knowledge snapshots and tenant accounts.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the tables if they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tenants (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			secret_hash TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS workflows (
			id            UUID PRIMARY KEY,
			tenant_id     TEXT NOT NULL REFERENCES tenants(id),
			business_url  TEXT NOT NULL,
			agent_name    TEXT NOT NULL,
			current_stage TEXT NOT NULL,
			status        TEXT NOT NULL,
			result        JSONB,
			error_detail  TEXT NOT NULL DEFAULT '',
			area_code     TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS workflows_tenant_idx ON workflows (tenant_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS stage_records (
			id           UUID PRIMARY KEY,
			workflow_id  UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
			stage        TEXT NOT NULL,
			attempt      INT NOT NULL,
			outcome      TEXT NOT NULL,
			payload      JSONB,
			error_detail TEXT NOT NULL DEFAULT '',
			started_at   TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS stage_records_workflow_idx ON stage_records (workflow_id, started_at);

		CREATE TABLE IF NOT EXISTS snapshots (
			workflow_id UUID PRIMARY KEY REFERENCES workflows(id) ON DELETE CASCADE,
			data        JSONB NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
