package onecontext

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go"
)

// SchemaInput is either a ValidatedSchema or a RawSchema.
type SchemaInput interface {
	isSchemaInput()
}

// ValidatedSchema wraps a typed JSON schema, usually derived from a Go type
// with SchemaFor.
type ValidatedSchema struct {
	Schema *jsonschema.Schema
}

// RawSchema is a JSON-schema-shaped object passed through as given.
type RawSchema map[string]any

func (ValidatedSchema) isSchemaInput() {}
func (RawSchema) isSchemaInput()       {}

// SchemaFor infers a ValidatedSchema from the Go type T.
// Field descriptions come from `jsonschema` struct tags.
func SchemaFor[T any]() (ValidatedSchema, error) {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		return ValidatedSchema{}, &SchemaConversionError{Err: err}
	}
	return ValidatedSchema{Schema: s}, nil
}

// Normalize converts a schema input into a StructuredOutputRequest using the
// package defaults for an empty prompt or model.
func Normalize(in SchemaInput, prompt string, model openai.ChatModel) (StructuredOutputRequest, error) {
	return normalize(in, prompt, model, DefaultValues())
}

func normalize(in SchemaInput, prompt string, model openai.ChatModel, d Defaults) (StructuredOutputRequest, error) {
	schema, err := canonicalSchema(in)
	if err != nil {
		return StructuredOutputRequest{}, err
	}
	// The service rejects a top-level description in the schema body.
	delete(schema, "description")

	if prompt == "" {
		prompt = d.Prompt
	}
	if model == "" {
		model = d.Model
	}

	return StructuredOutputRequest{
		StructuredOutputSchema: schema,
		Prompt:                 prompt,
		Model:                  model,
	}, nil
}

// canonicalSchema returns a fresh top-level map so stripping keys never
// mutates the caller's value.
func canonicalSchema(in SchemaInput) (map[string]any, error) {
	switch s := in.(type) {
	case ValidatedSchema:
		if s.Schema == nil {
			return nil, &SchemaConversionError{}
		}
		data, err := json.Marshal(s.Schema)
		if err != nil {
			return nil, &SchemaConversionError{Err: err}
		}
		var out map[string]any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, &SchemaConversionError{Err: err}
		}
		if len(out) == 0 {
			return nil, &SchemaConversionError{}
		}
		return out, nil
	case RawSchema:
		if s == nil {
			return nil, &InvalidSchemaTypeError{Got: s}
		}
		return maps.Clone(map[string]any(s)), nil
	default:
		return nil, &InvalidSchemaTypeError{Got: in}
	}
}

// ResponseFormat adapts the canonical schema for a direct OpenAI chat
// completion, so one schema can drive both the service and a local call.
func (r StructuredOutputRequest) ResponseFormat(name string) openai.ChatCompletionNewParamsResponseFormatUnion {
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   name,
				Schema: r.StructuredOutputSchema,
			},
		},
	}
}

// ValidateOutput checks a structured output returned by Search or Get against
// the schema it was requested with.
func ValidateOutput(schema ValidatedSchema, output json.RawMessage) error {
	if schema.Schema == nil {
		return &SchemaConversionError{}
	}
	if len(output) == 0 {
		return errors.New("structured output is empty")
	}
	resolved, err := schema.Schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolve schema: %w", err)
	}

	var instance any
	if err := json.Unmarshal(output, &instance); err != nil {
		return fmt.Errorf("decode structured output: %w", err)
	}
	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}
