package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxlane/voxlane/internal/config"
	"github.com/voxlane/voxlane/internal/db"
	"github.com/voxlane/voxlane/internal/types"
)

var createTenantCommand = &cobra.Command{
	Use:   "create-tenant <tenant-id>",
	Short: "Register a tenant account",
	Long: `Registers a tenant account with a bcrypt-hashed API secret. The secret is
read from the TENANT_API_SECRET environment variable so it never appears in
shell history.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreateTenantCmd,
}

var createTenantName string

func init() {
	createTenantCommand.Flags().StringVar(&createTenantName, "name", "", "Display name (defaults to the tenant id)")

	rootCmd.AddCommand(createTenantCommand)
}

func runCreateTenantCmd(_ *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tenantID := args[0]
	secret := os.Getenv("TENANT_API_SECRET")
	if secret == "" {
		return fmt.Errorf("TENANT_API_SECRET is required but not set")
	}
	if len(secret) < 8 {
		return fmt.Errorf("TENANT_API_SECRET must be at least 8 characters")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required but not set")
	}

	secretConfig, err := config.NewSecretConfig()
	if err != nil {
		return err
	}
	hash, err := secretConfig.HashSecret(secret)
	if err != nil {
		return err
	}

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}

	name := createTenantName
	if name == "" {
		name = tenantID
	}

	tenant := &types.Tenant{
		ID:         tenantID,
		Name:       name,
		SecretHash: hash,
		CreatedAt:  time.Now().UTC(),
	}
	if err := database.CreateTenant(ctx, tenant); err != nil {
		return err
	}

	fmt.Printf("Created tenant %s\n", tenantID)
	return nil
}
