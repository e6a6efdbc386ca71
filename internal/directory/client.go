// Package directory is a client for a structured business-data API. As a
// structured source it outranks the generic crawler when extraction merges
// category data at equal confidence.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/voxlane/voxlane/internal/knowledge"
)

// DefaultTimeout is the per-request timeout for directory lookups.
const DefaultTimeout = 15 * time.Second

// APIError represents a failure response from the directory API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("directory API error (status %d): %s", e.StatusCode, e.Message)
}

// Transient reports whether the request may reasonably be retried.
func (e *APIError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client talks to the business-data directory API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a directory client for the given base URL and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// listing is the wire shape of one directory record.
type listing struct {
	Category   string   `json:"category"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Keywords   []string `json:"keywords,omitempty"`
	Confidence float64  `json:"confidence"`
	SourceURL  string   `json:"source_url,omitempty"`
}

// lookupResponse is the wire shape of a directory lookup.
type lookupResponse struct {
	Domain   string    `json:"domain"`
	Listings []listing `json:"listings"`
}

// Name identifies the source in logs and provenance diagnostics.
func (c *Client) Name() string { return "business-directory" }

// Extract queries the directory for the business domain and maps its listings
// onto the knowledge categories. Unknown categories in the response are
// dropped rather than failing the whole lookup.
func (c *Client) Extract(ctx context.Context, businessURL, industry string) (*knowledge.Snapshot, error) {
	parsed, err := url.Parse(businessURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid business URL %q", businessURL)
	}

	endpoint := fmt.Sprintf("%s/v1/businesses/lookup?domain=%s&industry=%s",
		c.baseURL, url.QueryEscape(parsed.Host), url.QueryEscape(industry))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var lookup lookupResponse
	if err := json.Unmarshal(body, &lookup); err != nil {
		return nil, fmt.Errorf("failed to parse directory response: %w", err)
	}

	snapshot := knowledge.NewEmptySnapshot()
	for _, l := range lookup.Listings {
		if !knowledge.ValidCategory(l.Category) || l.Content == "" {
			continue
		}
		var sources []string
		if l.SourceURL != "" {
			sources = []string{l.SourceURL}
		}
		confidence := l.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
		snapshot.Categories[l.Category] = knowledge.CategoryData{
			Title:      l.Title,
			Content:    l.Content,
			Keywords:   l.Keywords,
			Confidence: confidence,
			Provenance: knowledge.ProvenanceDirectory,
			SourceURLs: sources,
		}
	}

	return snapshot, nil
}
