// Package server provides the HTTP REST API for the agent workflow engine.
package server

import (
	"errors"
	"net/http"

	"github.com/voxlane/voxlane/internal/engine"
	"github.com/voxlane/voxlane/internal/schemas"
	"github.com/voxlane/voxlane/internal/tenant"
)

// ErrInvalidCredentials indicates invalid tenant credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid tenant id or api secret"
}

// HTTPStatus returns the appropriate HTTP status code for an error.
// Cross-tenant denials map to 404 so existence never leaks.
func HTTPStatus(err error) int {
	var notFound *engine.NotFoundError
	var denied *tenant.AccessDeniedError
	var invalidState *engine.InvalidStateError
	var validation *engine.ValidationError
	var schemaValidation *schemas.ValidationError
	var credentials *ErrInvalidCredentials

	switch {
	case errors.As(err, &notFound), errors.As(err, &denied):
		return http.StatusNotFound
	case errors.As(err, &invalidState):
		return http.StatusConflict
	case errors.As(err, &validation), errors.As(err, &schemaValidation):
		return http.StatusBadRequest
	case errors.As(err, &credentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
