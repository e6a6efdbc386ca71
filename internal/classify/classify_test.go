package classify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxlane/voxlane/internal/fetch"
	"github.com/voxlane/voxlane/internal/llm"
)

// stubLLM returns a canned JSON response.
type stubLLM struct {
	response string
	err      error
	prompt   string
}

func (s *stubLLM) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	s.prompt = prompt
	return s.response, s.err
}

func (s *stubLLM) Close() error { return nil }

func htmlServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
}

func TestClassify_Success(t *testing.T) {
	server := htmlServer(t, `<html><body><main>Fresh sourdough daily</main></body></html>`)
	defer server.Close()

	stub := &stubLLM{response: `{"industry":"bakery","confidence":0.92}`}
	c := New(stub)

	result, err := c.Classify(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "bakery", result.Industry)
	assert.InDelta(t, 0.92, result.Confidence, 1e-9)
	assert.Contains(t, stub.prompt, "Fresh sourdough daily")
}

func TestClassify_NonHTMLContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	c := New(&stubLLM{})
	_, err := c.Classify(context.Background(), server.URL)

	var notHTML *NotHTMLError
	require.ErrorAs(t, err, &notHTML)
	assert.Equal(t, "application/pdf", notHTML.ContentType)
}

func TestClassify_FetchErrorPreservesTransience(t *testing.T) {
	server := htmlServer(t, "")
	server.Close()

	c := New(&stubLLM{})
	_, err := c.Classify(context.Background(), server.URL)

	var fetchErr *fetch.Error
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, fetchErr.Transient)
}

func TestClassify_MalformedResponse(t *testing.T) {
	server := htmlServer(t, `<html><body><main>content</main></body></html>`)
	defer server.Close()

	c := New(&stubLLM{response: "not json"})
	_, err := c.Classify(context.Background(), server.URL)
	require.Error(t, err)
}

func TestClassify_MissingIndustry(t *testing.T) {
	server := htmlServer(t, `<html><body><main>content</main></body></html>`)
	defer server.Close()

	c := New(&stubLLM{response: `{"confidence":0.5}`})
	_, err := c.Classify(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing industry")
}

func TestClassify_ConfidenceOutOfRange(t *testing.T) {
	server := htmlServer(t, `<html><body><main>content</main></body></html>`)
	defer server.Close()

	c := New(&stubLLM{response: `{"industry":"bakery","confidence":1.5}`})
	_, err := c.Classify(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}
