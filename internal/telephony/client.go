// Package telephony is a client for the phone-number provisioning API. It
// provisions a number for a deployed agent and releases numbers during
// compensation.
package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout is the per-request timeout for provisioning calls.
const DefaultTimeout = 30 * time.Second

// APIError represents a failure response from the telephony provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telephony API error (status %d): %s", e.StatusCode, e.Message)
}

// Transient reports whether the request may reasonably be retried.
func (e *APIError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Preferences narrows the number search.
type Preferences struct {
	AreaCode string `json:"area_code,omitempty"`
	Country  string `json:"country,omitempty"`
}

// Client talks to the telephony provider.
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	httpClient *http.Client
}

// NewClient creates a telephony client for the given base URL and credentials.
func NewClient(baseURL, accountSID, authToken string) *Client {
	return &Client{
		baseURL:    baseURL,
		accountSID: accountSID,
		authToken:  authToken,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

type provisionRequest struct {
	AgentID  string `json:"agent_id"`
	AreaCode string `json:"area_code,omitempty"`
	Country  string `json:"country,omitempty"`
}

type provisionResponse struct {
	PhoneNumber string `json:"phone_number"`
}

// ProvisionNumber acquires a phone number for the given agent, honoring the
// area-code preference when the provider has inventory for it.
func (c *Client) ProvisionNumber(ctx context.Context, agentID string, prefs Preferences) (string, error) {
	body, err := json.Marshal(provisionRequest{
		AgentID:  agentID,
		AreaCode: prefs.AreaCode,
		Country:  prefs.Country,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal provision request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/accounts/%s/numbers", c.baseURL, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create provision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("provision request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read provision response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var provisioned provisionResponse
	if err := json.Unmarshal(respBody, &provisioned); err != nil {
		return "", fmt.Errorf("failed to parse provision response: %w", err)
	}
	if provisioned.PhoneNumber == "" {
		return "", fmt.Errorf("provision response missing phone_number")
	}

	return provisioned.PhoneNumber, nil
}

// ReleaseNumber returns a provisioned number to the provider. Used for
// compensation; releasing an already-released number is not an error.
func (c *Client) ReleaseNumber(ctx context.Context, phoneNumber string) error {
	endpoint := fmt.Sprintf("%s/v1/accounts/%s/numbers/%s",
		c.baseURL, url.PathEscape(c.accountSID), url.PathEscape(phoneNumber))
	req, err := http.NewRequestWithContext(ctx, "DELETE", endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create release request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("release request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	return nil
}
