package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionNumber_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/accounts/AC123/numbers", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "token", pass)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "va_123", req["agent_id"])
		assert.Equal(t, "415", req["area_code"])

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"phone_number": "+15551234567"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "AC123", "token")
	number, err := client.ProvisionNumber(context.Background(), "va_123", Preferences{AreaCode: "415"})
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", number)
}

func TestProvisionNumber_ProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "no inventory"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "AC123", "token")
	_, err := client.ProvisionNumber(context.Background(), "va_123", Preferences{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.Transient())
}

func TestProvisionNumber_RateLimitIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "AC123", "token")
	_, err := client.ProvisionNumber(context.Background(), "va_123", Preferences{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Transient())
}

func TestReleaseNumber(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		path = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "AC123", "token")
	require.NoError(t, client.ReleaseNumber(context.Background(), "+15551234567"))
	assert.Equal(t, "/v1/accounts/AC123/numbers/+15551234567", path)
}

func TestReleaseNumber_AlreadyReleased(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "AC123", "token")
	assert.NoError(t, client.ReleaseNumber(context.Background(), "+15550000000"))
}
