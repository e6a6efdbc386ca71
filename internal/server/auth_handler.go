// Package server provides the HTTP REST API for the agent workflow engine.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/voxlane/voxlane/internal/config"
	"github.com/voxlane/voxlane/internal/types"
)

// TenantStore looks up tenant accounts for credential verification.
type TenantStore interface {
	GetTenant(ctx context.Context, id string) (*types.Tenant, error)
}

// AuthHandler handles tenant token issuance.
type AuthHandler struct {
	tenants    TenantStore
	secrets    *config.SecretConfig
	jwtService *JWTService
	validator  *validator.Validate
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(tenants TenantStore, secrets *config.SecretConfig, jwtService *JWTService) *AuthHandler {
	return &AuthHandler{
		tenants:    tenants,
		secrets:    secrets,
		jwtService: jwtService,
		validator:  validator.New(),
	}
}

// Token exchanges tenant credentials for a JWT. Unknown tenants and wrong
// secrets produce the same response.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req types.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		http.Error(w, extractValidationErrors(err), http.StatusBadRequest)
		return
	}

	account, err := h.tenants.GetTenant(r.Context(), req.TenantID)
	if err != nil {
		credErr := &ErrInvalidCredentials{}
		http.Error(w, credErr.Error(), HTTPStatus(credErr))
		return
	}
	if !h.secrets.VerifySecret(req.APISecret, account.SecretHash) {
		credErr := &ErrInvalidCredentials{}
		http.Error(w, credErr.Error(), HTTPStatus(credErr))
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(account.ID)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	response := types.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// Log error but response already sent
		return
	}
}

// extractValidationErrors extracts validation error messages from validator
// errors.
func extractValidationErrors(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrors) > 0 {
			// Return first validation error for simplicity
			ve := validationErrors[0]
			return fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag())
		}
	}
	return "validation error: invalid request"
}
