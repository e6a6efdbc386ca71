package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxlane/voxlane/internal/knowledge"
)

func testSnapshot() *knowledge.Snapshot {
	s := knowledge.NewEmptySnapshot()
	s.Categories["company_overview"] = knowledge.CategoryData{
		Title: "About", Content: "Family bakery", Confidence: 0.9,
	}
	s.Categories["business_hours"] = knowledge.CategoryData{
		Title: "Hours", Content: "Mon-Sat 7-6", Confidence: 1.0,
	}
	return s
}

func TestCreateProfile_SendsPopulatedCategoriesOnly(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/agents", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"agent_id": "va_123"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	agentID, err := client.CreateProfile(context.Background(), "Sunrise Bakery", "bakery", testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "va_123", agentID)

	categories := received["categories"].(map[string]any)
	assert.Len(t, categories, 2)
	assert.Contains(t, categories, "company_overview")
	assert.NotContains(t, categories, "special_offers")
}

func TestCreateProfile_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	_, err := client.CreateProfile(context.Background(), "x", "bakery", testSnapshot())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Transient())
}

func TestCreateProfile_RejectionIsNotTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	_, err := client.CreateProfile(context.Background(), "x", "bakery", testSnapshot())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.Transient())
}

func TestCreateProfile_MissingAgentID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	_, err := client.CreateProfile(context.Background(), "x", "bakery", testSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing agent_id")
}

func TestDeleteProfile(t *testing.T) {
	var deleted string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		deleted = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	require.NoError(t, client.DeleteProfile(context.Background(), "va_123"))
	assert.Equal(t, "/v1/agents/va_123", deleted)
}

func TestDeleteProfile_NotFoundIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	assert.NoError(t, client.DeleteProfile(context.Background(), "va_gone"))
}
