package onecontext

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invoiceSummary struct {
	Vendor string  `json:"vendor" jsonschema:"the company that issued the invoice"`
	Total  float64 `json:"total"`
}

// TestNormalize_RawSchemaStripsDescription verifies only the top-level
// description is removed and the caller's map is left intact.
func TestNormalize_RawSchemaStripsDescription(t *testing.T) {
	raw := RawSchema{
		"type":        "object",
		"description": "top level",
		"properties": map[string]any{
			"name": map[string]any{"type": "string", "description": "kept"},
		},
	}

	req, err := Normalize(raw, "", "")
	require.NoError(t, err)

	assert.NotContains(t, req.StructuredOutputSchema, "description")
	props := req.StructuredOutputSchema["properties"].(map[string]any)
	assert.Equal(t, "kept", props["name"].(map[string]any)["description"])
	assert.Contains(t, raw, "description", "caller map must not be mutated")
}

// TestNormalize_Defaults verifies empty prompt and model take the defaults.
func TestNormalize_Defaults(t *testing.T) {
	req, err := Normalize(RawSchema{"type": "object"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultPrompt, req.Prompt)
	assert.Equal(t, openai.ChatModelGPT4oMini, req.Model)

	req, err = Normalize(RawSchema{"type": "object"}, "Summarize", openai.ChatModelGPT4o)
	require.NoError(t, err)
	assert.Equal(t, "Summarize", req.Prompt)
	assert.Equal(t, openai.ChatModelGPT4o, req.Model)
}

// TestNormalize_Idempotent verifies normalizing an already normalized schema
// produces the same schema.
func TestNormalize_Idempotent(t *testing.T) {
	first, err := Normalize(RawSchema{"type": "object", "description": "x", "title": "T"}, "", "")
	require.NoError(t, err)

	second, err := Normalize(RawSchema(first.StructuredOutputSchema), first.Prompt, first.Model)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// TestNormalize_ValidatedSchema verifies a schema inferred from a Go type is
// converted to a plain JSON object.
func TestNormalize_ValidatedSchema(t *testing.T) {
	schema, err := SchemaFor[invoiceSummary]()
	require.NoError(t, err)
	schema.Schema.Description = "should be stripped"

	req, err := Normalize(schema, "", "")
	require.NoError(t, err)

	assert.Equal(t, "object", req.StructuredOutputSchema["type"])
	assert.NotContains(t, req.StructuredOutputSchema, "description")
	props, ok := req.StructuredOutputSchema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "vendor")
	assert.Contains(t, props, "total")
}

// TestNormalize_InvalidInput verifies the error kinds for unusable inputs.
func TestNormalize_InvalidInput(t *testing.T) {
	var typeErr *InvalidSchemaTypeError
	_, err := Normalize(nil, "", "")
	assert.True(t, errors.As(err, &typeErr))

	_, err = Normalize(RawSchema(nil), "", "")
	assert.True(t, errors.As(err, &typeErr))

	var convErr *SchemaConversionError
	_, err = Normalize(ValidatedSchema{}, "", "")
	assert.True(t, errors.As(err, &convErr))
}

// TestResponseFormat verifies the schema is carried into an OpenAI response format.
func TestResponseFormat(t *testing.T) {
	req, err := Normalize(RawSchema{"type": "object"}, "", "")
	require.NoError(t, err)

	format := req.ResponseFormat("invoice")
	require.NotNil(t, format.OfJSONSchema)
	assert.Equal(t, "invoice", format.OfJSONSchema.JSONSchema.Name)
	assert.Equal(t, map[string]any{"type": "object"}, format.OfJSONSchema.JSONSchema.Schema)
}

// TestValidateOutput verifies returned output is checked against the schema.
func TestValidateOutput(t *testing.T) {
	schema := ValidatedSchema{Schema: &jsonschema.Schema{
		Type:     "object",
		Required: []string{"vendor"},
		Properties: map[string]*jsonschema.Schema{
			"vendor": {Type: "string"},
		},
	}}

	assert.NoError(t, ValidateOutput(schema, json.RawMessage(`{"vendor":"Acme"}`)))
	assert.Error(t, ValidateOutput(schema, json.RawMessage(`{"vendor":42}`)))
	assert.Error(t, ValidateOutput(schema, json.RawMessage(`{}`)))
	assert.Error(t, ValidateOutput(schema, nil))
	assert.Error(t, ValidateOutput(schema, json.RawMessage(`not json`)))
}
