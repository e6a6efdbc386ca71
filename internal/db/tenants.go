package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/voxlane/voxlane/internal/engine"
	"github.com/voxlane/voxlane/internal/types"
)

// CreateTenant registers a new tenant account with a pre-hashed API secret
func (db *DB) CreateTenant(ctx context.Context, tenant *types.Tenant) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO tenants (id, name, secret_hash, created_at)
		 VALUES ($1, $2, $3, $4)`,
		tenant.ID, tenant.Name, tenant.SecretHash, tenant.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetTenant retrieves a tenant by id
func (db *DB) GetTenant(ctx context.Context, id string) (*types.Tenant, error) {
	var tenant types.Tenant
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, secret_hash, created_at FROM tenants WHERE id = $1`,
		id,
	).Scan(&tenant.ID, &tenant.Name, &tenant.SecretHash, &tenant.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &engine.NotFoundError{Resource: "tenant", ID: id}
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &tenant, nil
}
