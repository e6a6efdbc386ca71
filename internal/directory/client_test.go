package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxlane/voxlane/internal/knowledge"
)

func TestExtract_MapsListingsToCategories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/businesses/lookup", r.URL.Path)
		assert.Equal(t, "example-bakery.com", r.URL.Query().Get("domain"))
		assert.Equal(t, "bakery", r.URL.Query().Get("industry"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"domain": "example-bakery.com",
			"listings": [
				{"category": "business_hours", "title": "Hours", "content": "Mon-Sat 7-6", "confidence": 0.95, "source_url": "https://dir.example/hours"},
				{"category": "contact_information", "title": "Contact", "content": "555-0100", "confidence": 0.9},
				{"category": "not_a_category", "title": "x", "content": "junk", "confidence": 1.0}
			]
		}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	snapshot, err := client.Extract(context.Background(), "https://example-bakery.com", "bakery")
	require.NoError(t, err)

	require.True(t, snapshot.Complete())
	hours := snapshot.Categories["business_hours"]
	assert.Equal(t, "Mon-Sat 7-6", hours.Content)
	assert.Equal(t, knowledge.ProvenanceDirectory, hours.Provenance)
	assert.Equal(t, []string{"https://dir.example/hours"}, hours.SourceURLs)

	// Unknown category dropped, everything else still empty.
	assert.Equal(t, []string{"business_hours", "contact_information"}, snapshot.PopulatedCategories())
}

func TestExtract_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	_, err := client.Extract(context.Background(), "https://example.com", "bakery")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Transient())
}

func TestExtract_NotFoundIsNotTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	_, err := client.Extract(context.Background(), "https://example.com", "bakery")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.Transient())
}

func TestExtract_InvalidBusinessURL(t *testing.T) {
	client := NewClient("http://unused", "test-key")
	_, err := client.Extract(context.Background(), "://bad", "bakery")
	require.Error(t, err)
}

func TestExtract_ClampsConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"listings": [{"category": "faq_support", "title": "FAQ", "content": "See site", "confidence": 2.5}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	snapshot, err := client.Extract(context.Background(), "https://example.com", "bakery")
	require.NoError(t, err)
	assert.Equal(t, 1.0, snapshot.Categories["faq_support"].Confidence)
}
