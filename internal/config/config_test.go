package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"api_key": "test-key",
		"database_url": "postgres://localhost/voxlane",
		"max_pages": 12
	}`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, "postgres://localhost/voxlane", cfg.DatabaseURL)
	assert.Equal(t, 12, cfg.MaxPages)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadConfig_BadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{APIKey: "explicit"}
	merged := cfg.MergeWithDefaults(Config{
		APIKey:      "default",
		DatabaseURL: "postgres://localhost/voxlane",
		MaxPages:    8,
	})

	assert.Equal(t, "explicit", merged.APIKey)
	assert.Equal(t, "postgres://localhost/voxlane", merged.DatabaseURL)
	assert.Equal(t, 8, merged.MaxPages)
}

func TestValidate_NegativeMaxPages(t *testing.T) {
	cfg := Config{MaxPages: -1}
	assert.Error(t, cfg.Validate())
}

func TestNewJWTConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "super-secret")
	t.Setenv("JWT_EXPIRATION_HOURS", "12")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, "super-secret", cfg.Secret)
	assert.Equal(t, 12, cfg.ExpirationHours)
}

func TestNewJWTConfig_DefaultExpiration(t *testing.T) {
	t.Setenv("JWT_SECRET", "super-secret")
	t.Setenv("JWT_EXPIRATION_HOURS", "")

	cfg, err := NewJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.ExpirationHours)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
}

func TestNewJWTConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := NewJWTConfig()
	assert.Error(t, err)
}

func TestSecretConfig_HashAndVerify(t *testing.T) {
	cfg := &SecretConfig{BcryptCost: 10}

	hash, err := cfg.HashSecret("tenant-api-secret")
	require.NoError(t, err)
	assert.NotEqual(t, "tenant-api-secret", hash)

	assert.True(t, cfg.VerifySecret("tenant-api-secret", hash))
	assert.False(t, cfg.VerifySecret("wrong-secret", hash))
}

func TestSecretConfig_PepperChangesVerification(t *testing.T) {
	peppered := &SecretConfig{BcryptCost: 10, Pepper: "pepper"}
	plain := &SecretConfig{BcryptCost: 10}

	hash, err := peppered.HashSecret("tenant-api-secret")
	require.NoError(t, err)

	assert.True(t, peppered.VerifySecret("tenant-api-secret", hash))
	assert.False(t, plain.VerifySecret("tenant-api-secret", hash))
}

func TestNewSecretConfig_CostOutOfRange(t *testing.T) {
	t.Setenv("BCRYPT_COST", "4")
	_, err := NewSecretConfig()
	assert.Error(t, err)
}
