// Package mcp exposes OneContext retrieval as Model Context Protocol tools.
package mcp

import "github.com/onecontext/onecontext-go/pkg/onecontext"

// SearchContextInput defines the input parameters for the search_context tool.
type SearchContextInput struct {
	// Query is the search text, matched semantically and by full text.
	Query string `json:"query" jsonschema:"the search query"`
	// ContextName is the context to search.
	ContextName string `json:"context_name" jsonschema:"name of the context to search"`
	// TopK caps the number of chunks returned.
	TopK int `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
	// SemanticWeight and FullTextWeight weight the two rankings (0-1).
	SemanticWeight *float64 `json:"semantic_weight,omitempty" jsonschema:"weight of the semantic ranking between 0 and 1"`
	FullTextWeight *float64 `json:"full_text_weight,omitempty" jsonschema:"weight of the full-text ranking between 0 and 1"`
	// MetadataFilters restricts results by file metadata.
	MetadataFilters map[string]any `json:"metadata_filters,omitempty" jsonschema:"metadata filter such as {\"team\": {\"$eq\": \"search\"}} or {\"$and\": [...]}"`
}

// GetChunksInput defines the input parameters for the get_chunks tool.
type GetChunksInput struct {
	ContextName     string         `json:"context_name" jsonschema:"name of the context to read"`
	Limit           int            `json:"limit,omitempty" jsonschema:"maximum number of chunks to return (default 10)"`
	MetadataFilters map[string]any `json:"metadata_filters,omitempty" jsonschema:"metadata filter such as {\"year\": {\"$gte\": 2023}}"`
}

// ChunksOutput contains chunks returned by search_context and get_chunks.
type ChunksOutput struct {
	Chunks []ChunkResult `json:"chunks"`
	// Message provides informational context (e.g., "No matching chunks found").
	Message string `json:"message,omitempty"`
}

// ChunkResult is a single chunk as presented to the model.
type ChunkResult struct {
	ID       string              `json:"id"`
	FileName string              `json:"file_name"`
	Content  string              `json:"content"`
	Score    *float64            `json:"score,omitempty"`
	Metadata onecontext.Metadata `json:"metadata,omitempty"`
}

// ListContextsInput takes no parameters.
type ListContextsInput struct{}

// ListContextsOutput holds the contexts as reported by the service.
type ListContextsOutput struct {
	Contexts any `json:"contexts"`
}

// ListFilesInput defines the input parameters for the list_files tool.
type ListFilesInput struct {
	ContextName     string         `json:"context_name" jsonschema:"name of the context"`
	Skip            int            `json:"skip,omitempty" jsonschema:"number of files to skip"`
	Limit           int            `json:"limit,omitempty" jsonschema:"maximum number of files to return (default 10)"`
	MetadataFilters map[string]any `json:"metadata_filters,omitempty" jsonschema:"metadata filter over file metadata"`
}

// ListFilesOutput contains one page of files.
type ListFilesOutput struct {
	Files []FileResult `json:"files"`
	Count int          `json:"count"`
}

// FileResult summarizes a file and its processing state.
type FileResult struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Status      string              `json:"status"`
	DateCreated string              `json:"date_created"`
	Metadata    onecontext.Metadata `json:"metadata,omitempty"`
}
