package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCorrections_Valid(t *testing.T) {
	doc := []byte(`{
		"corrections": {
			"business_hours": {
				"title": "Hours",
				"content": "Tue-Sun 7am-3pm",
				"keywords": ["hours", "open"]
			}
		}
	}`)
	assert.NoError(t, ValidateCorrections(doc))
}

func TestValidateCorrections_EmptyObject(t *testing.T) {
	assert.NoError(t, ValidateCorrections([]byte(`{}`)))
	assert.NoError(t, ValidateCorrections([]byte(`{"corrections": {}}`)))
}

func TestValidateCorrections_MissingContent(t *testing.T) {
	doc := []byte(`{"corrections": {"business_hours": {"title": "Hours"}}}`)
	err := ValidateCorrections(doc)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.NotEmpty(t, verr.Errors)
	assert.Contains(t, verr.Errors[0].Field, "business_hours")
}

func TestValidateCorrections_UnknownEntryField(t *testing.T) {
	doc := []byte(`{"corrections": {"business_hours": {"content": "x", "confidence": 0.9}}}`)
	err := ValidateCorrections(doc)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidateCorrections_EmptyContentRejected(t *testing.T) {
	doc := []byte(`{"corrections": {"business_hours": {"content": ""}}}`)
	err := ValidateCorrections(doc)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidateJSONString_BadSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": 42}`, `{}`)

	var lerr *SchemaLoadError
	require.ErrorAs(t, err, &lerr)
}
