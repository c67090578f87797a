package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onecontext/onecontext-go/pkg/onecontext"
)

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Keep a developer's .env out of the test.
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), err
}

// TestCLI_MissingAPIKey verifies commands refuse to run without a key.
func TestCLI_MissingAPIKey(t *testing.T) {
	t.Setenv("ONECONTEXT_API_KEY", "")

	_, err := runCLI(t, "context", "list")
	require.Error(t, err)
	assert.ErrorIs(t, err, onecontext.ErrMissingAPIKey)
	assert.Contains(t, err.Error(), "ONECONTEXT_API_KEY")
}

// TestCLI_Search verifies flags become request fields and the response is printed.
func TestCLI_Search(t *testing.T) {
	var body map[string]any
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("API-KEY")
		require.Equal(t, "/api/v5/context/chunk/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{"chunks":[{"id":"c1","content":"hello"}]}`)
	}))
	defer srv.Close()

	t.Setenv("ONECONTEXT_API_KEY", "cli-key")
	t.Setenv("BASE_URL", srv.URL+"/api/v5/")

	out, err := runCLI(t, "search", "docs", "hello world",
		"--top-k", "3",
		"--filter", `{"team":{"$eq":"search"}}`,
	)
	require.NoError(t, err)

	assert.Equal(t, "cli-key", apiKey)
	assert.Equal(t, "hello world", body["query"])
	assert.Equal(t, "docs", body["contextName"])
	assert.Equal(t, float64(3), body["topK"])
	assert.Equal(t, 0.5, body["semanticWeight"])
	assert.Equal(t, map[string]any{"team": map[string]any{"$eq": "search"}}, body["metadataFilters"])

	var resp onecontext.ChunkOperationResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Chunks, 1)
	assert.Equal(t, "hello", resp.Chunks[0].Content)
}

// TestCLI_SearchSchema verifies a schema file becomes a structured-output request.
func TestCLI_SearchSchema(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{"chunks":[],"output":{"title":"x"}}`)
	}))
	defer srv.Close()

	schemaPath := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`{"type":"object","description":"drop me"}`), 0o644))

	t.Setenv("ONECONTEXT_API_KEY", "cli-key")
	t.Setenv("BASE_URL", srv.URL)

	_, err := runCLI(t, "search", "docs", "q", "--schema", schemaPath)
	require.NoError(t, err)

	so := body["structuredOutputRequest"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "object"}, so["structuredOutputSchema"])
	assert.Equal(t, onecontext.DefaultPrompt, so["prompt"])
}

// TestCLI_InvalidFilter verifies a malformed filter fails before any request.
func TestCLI_InvalidFilter(t *testing.T) {
	t.Setenv("ONECONTEXT_API_KEY", "cli-key")
	t.Setenv("BASE_URL", "http://127.0.0.1:1/")

	_, err := runCLI(t, "get", "docs", "--filter", `{"team":"search"}`)
	assert.Error(t, err)
}

// TestCLI_Schema verifies the schema command runs without a key and prints the
// normalized request alongside the OpenAI response format.
func TestCLI_Schema(t *testing.T) {
	t.Setenv("ONECONTEXT_API_KEY", "")

	schemaPath := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`{"type":"object","description":"drop me","properties":{"title":{"type":"string"}}}`), 0o644))

	out, err := runCLI(t, "schema", schemaPath, "--name", "invoice", "--model", "gpt-4o")
	require.NoError(t, err)

	var got struct {
		StructuredOutputRequest map[string]any `json:"structuredOutputRequest"`
		ResponseFormat          map[string]any `json:"responseFormat"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	wantSchema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"title": map[string]any{"type": "string"}},
	}
	assert.Equal(t, wantSchema, got.StructuredOutputRequest["structuredOutputSchema"])
	assert.Equal(t, "gpt-4o", got.StructuredOutputRequest["model"])
	assert.Equal(t, onecontext.DefaultPrompt, got.StructuredOutputRequest["prompt"])

	assert.Equal(t, "json_schema", got.ResponseFormat["type"])
	js := got.ResponseFormat["json_schema"].(map[string]any)
	assert.Equal(t, "invoice", js["name"])
	assert.Equal(t, wantSchema, js["schema"])
}
