// Package tenant enforces tenant isolation. Every read or write against a
// workflow goes through the guard; there is no other authorization path.
package tenant

import "fmt"

// AccessDeniedError indicates a caller tried to touch a resource owned by a
// different tenant. The API boundary maps this to not-found so cross-tenant
// probes cannot distinguish "exists elsewhere" from "does not exist".
type AccessDeniedError struct {
	CallerTenant string
}

func (e *AccessDeniedError) Error() string {
	// Deliberately omits the resource's owning tenant.
	return fmt.Sprintf("tenant %q does not own the requested resource", e.CallerTenant)
}

// Guard is the single choke point for tenant isolation checks.
type Guard struct{}

// NewGuard creates a Guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Authorize permits the operation iff the caller's tenant equals the
// resource's recorded tenant. Empty tenant ids never authorize anything.
func (g *Guard) Authorize(resourceTenant, callerTenant string) error {
	if callerTenant == "" || resourceTenant == "" || resourceTenant != callerTenant {
		return &AccessDeniedError{CallerTenant: callerTenant}
	}
	return nil
}
