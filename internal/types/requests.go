package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// CreateAgentRequest is the request body for submitting a new agent-creation
// workflow. The tenant id comes from the authenticated token, never from the
// body.
type CreateAgentRequest struct {
	BusinessURL string `json:"business_url" validate:"required,url"`
	AgentName   string `json:"agent_name,omitempty" validate:"omitempty,max=255"`
	AreaCode    string `json:"area_code,omitempty" validate:"omitempty,len=3,numeric"`
}

// TokenRequest is the request body for exchanging tenant credentials for a JWT.
type TokenRequest struct {
	TenantID  string `json:"tenant_id" validate:"required,min=1"`
	APISecret string `json:"api_secret" validate:"required,min=8"`
}

// TokenResponse carries an issued tenant token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Tenant is a registered tenant account. The secret hash never leaves the
// database layer in API responses.
type Tenant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate validates the CreateAgentRequest using the validator.
func (r *CreateAgentRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the TokenRequest using the validator.
func (r *TokenRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
