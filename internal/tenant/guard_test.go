package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorize_SameTenant(t *testing.T) {
	g := NewGuard()
	assert.NoError(t, g.Authorize("tenant-A", "tenant-A"))
}

func TestAuthorize_CrossTenant(t *testing.T) {
	g := NewGuard()
	err := g.Authorize("tenant-A", "tenant-B")

	var denied *AccessDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "tenant-B", denied.CallerTenant)
	// The owning tenant must never leak through the error text.
	assert.NotContains(t, err.Error(), "tenant-A")
}

func TestAuthorize_EmptyTenants(t *testing.T) {
	g := NewGuard()
	assert.Error(t, g.Authorize("", ""))
	assert.Error(t, g.Authorize("tenant-A", ""))
	assert.Error(t, g.Authorize("", "tenant-A"))
}
