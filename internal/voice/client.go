// Package voice is a client for the voice-profile provisioning API. The
// deployment stage creates one profile per agent and deletes it again when a
// later step fails.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voxlane/voxlane/internal/knowledge"
)

// DefaultTimeout is the per-request timeout for provisioning calls.
const DefaultTimeout = 30 * time.Second

// APIError represents a failure response from the voice provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("voice API error (status %d): %s", e.StatusCode, e.Message)
}

// Transient reports whether the request may reasonably be retried.
func (e *APIError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client talks to the voice-provisioning provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a voice client for the given base URL and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// createProfileRequest is the wire shape for profile creation.
type createProfileRequest struct {
	Name       string                       `json:"name"`
	Industry   string                       `json:"industry"`
	Categories map[string]categoryKnowledge `json:"categories"`
}

type categoryKnowledge struct {
	Title    string   `json:"title,omitempty"`
	Content  string   `json:"content"`
	Keywords []string `json:"keywords,omitempty"`
}

type createProfileResponse struct {
	AgentID string `json:"agent_id"`
}

// CreateProfile provisions a voice agent from a validated knowledge snapshot
// and returns the provider's agent id.
func (c *Client) CreateProfile(ctx context.Context, name, industry string, snapshot *knowledge.Snapshot) (string, error) {
	payload := createProfileRequest{
		Name:       name,
		Industry:   industry,
		Categories: make(map[string]categoryKnowledge),
	}
	for _, category := range knowledge.Categories {
		data := snapshot.Categories[category]
		if data.Empty() {
			continue
		}
		payload.Categories[category] = categoryKnowledge{
			Title:    data.Title,
			Content:  data.Content,
			Keywords: data.Keywords,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal voice profile request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/agents", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create voice profile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("voice profile request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read voice profile response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var created createProfileResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("failed to parse voice profile response: %w", err)
	}
	if created.AgentID == "" {
		return "", fmt.Errorf("voice profile response missing agent_id")
	}

	return created.AgentID, nil
}

// DeleteProfile releases a previously created voice agent. Used for
// compensation when phone provisioning fails after profile creation.
func (c *Client) DeleteProfile(ctx context.Context, agentID string) error {
	req, err := http.NewRequestWithContext(ctx, "DELETE", c.baseURL+"/v1/agents/"+agentID, nil)
	if err != nil {
		return fmt.Errorf("failed to create voice delete request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("voice delete request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	return nil
}
