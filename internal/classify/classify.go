// Package classify determines the industry of a business from its website.
package classify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/voxlane/voxlane/internal/fetch"
	"github.com/voxlane/voxlane/internal/llm"
	"github.com/voxlane/voxlane/internal/prompts"
)

// maxContentChars bounds how much page text goes into the prompt.
const maxContentChars = 12000

// Result is an industry classification with the model's confidence.
type Result struct {
	Industry   string  `json:"industry"`
	Confidence float64 `json:"confidence"`
}

// NotHTMLError indicates the business URL did not serve an HTML document.
// This is a permanent condition; retrying will not help.
type NotHTMLError struct {
	URL         string
	ContentType string
}

func (e *NotHTMLError) Error() string {
	return fmt.Sprintf("URL %s returned non-HTML content type %q", e.URL, e.ContentType)
}

// Classifier classifies business websites by industry.
type Classifier struct {
	client    llm.Client
	fetchOpts *fetch.Options
}

// New creates a Classifier backed by the given LLM client.
func New(client llm.Client) *Classifier {
	return &Classifier{client: client, fetchOpts: fetch.DefaultOptions()}
}

// Classify fetches the business URL and asks the model for an industry label.
// Fetch errors are returned unwrapped so callers can inspect transience;
// non-HTML responses produce a NotHTMLError.
func (c *Classifier) Classify(ctx context.Context, businessURL string) (*Result, error) {
	page, err := fetch.URL(ctx, businessURL, c.fetchOpts)
	if err != nil {
		return nil, err
	}
	if !page.IsHTML() {
		return nil, &NotHTMLError{URL: businessURL, ContentType: page.ContentType}
	}

	text, err := fetch.ExtractText(page.HTML)
	if err != nil {
		return nil, fmt.Errorf("failed to extract page text: %w", err)
	}
	if len(text) > maxContentChars {
		text = text[:maxContentChars]
	}

	template := prompts.MustGet("classification.json", "classify-industry")
	prompt := prompts.Format(template, map[string]string{
		"URL":     businessURL,
		"Content": text,
	})

	responseText, err := c.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return nil, fmt.Errorf("industry classification request failed: %w", err)
	}

	var result Result
	if err := json.Unmarshal([]byte(responseText), &result); err != nil {
		return nil, fmt.Errorf("failed to parse classification response: %w", err)
	}
	if result.Industry == "" {
		return nil, fmt.Errorf("classification response missing industry label")
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		return nil, fmt.Errorf("classification confidence %v out of range", result.Confidence)
	}

	return &result, nil
}
