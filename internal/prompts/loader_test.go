package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_KnownPrompts(t *testing.T) {
	for _, tc := range []struct{ file, key string }{
		{"classification.json", "classify-industry"},
		{"extraction.json", "extract-categories"},
	} {
		prompt, err := Get(tc.file, tc.key)
		require.NoError(t, err, "%s/%s", tc.file, tc.key)
		assert.NotEmpty(t, prompt)
	}
}

func TestGet_MissingKey(t *testing.T) {
	_, err := Get("classification.json", "does-not-exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGet_MissingFile(t *testing.T) {
	_, err := Get("nope.json", "anything")
	require.Error(t, err)
}

func TestFormat(t *testing.T) {
	out := Format("Hello {{.Name}}, welcome to {{.Place}}", map[string]string{
		"Name":  "Ada",
		"Place": "the bakery",
	})
	assert.Equal(t, "Hello Ada, welcome to the bakery", out)
}

func TestFormat_UnusedPlaceholderLeftIntact(t *testing.T) {
	out := Format("{{.Known}} and {{.Unknown}}", map[string]string{"Known": "x"})
	assert.Equal(t, "x and {{.Unknown}}", out)
}
