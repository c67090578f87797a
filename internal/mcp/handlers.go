package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/onecontext/onecontext-go/pkg/onecontext"
)

const (
	defaultTopK     = 5
	defaultGetLimit = 10
)

// ContextAPI is the part of the OneContext client the tools use.
// *onecontext.Client implements it.
type ContextAPI interface {
	Search(ctx context.Context, args onecontext.SearchArgs) (*onecontext.ChunkOperationResponse, error)
	Get(ctx context.Context, args onecontext.GetArgs) (*onecontext.ChunkOperationResponse, error)
	ListContexts(ctx context.Context) (json.RawMessage, error)
	ListFiles(ctx context.Context, args onecontext.ListFilesArgs) (*onecontext.ListFilesResponse, error)
	Health(ctx context.Context) error
}

// parseFilters converts a tool's free-form filter object into a Filter.
func parseFilters(raw map[string]any) (onecontext.Filter, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode metadata filters: %w", err)
	}
	return onecontext.ParseFilter(data)
}

func toChunkResults(chunks []onecontext.Chunk) []ChunkResult {
	results := make([]ChunkResult, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, ChunkResult{
			ID:       c.ID,
			FileName: c.FileName,
			Content:  c.Content,
			Score:    c.CombinedScore,
			Metadata: c.MetadataJSON,
		})
	}
	return results
}

// makeSearchHandler creates the search_context tool handler.
func makeSearchHandler(api ContextAPI) func(
	context.Context, *mcp.CallToolRequest, SearchContextInput,
) (*mcp.CallToolResult, ChunksOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchContextInput) (
		*mcp.CallToolResult, ChunksOutput, error,
	) {
		topK := input.TopK
		if topK <= 0 {
			topK = defaultTopK
		}
		filter, err := parseFilters(input.MetadataFilters)
		if err != nil {
			return nil, ChunksOutput{}, err
		}

		resp, err := api.Search(ctx, onecontext.SearchArgs{
			Query:           input.Query,
			ContextName:     input.ContextName,
			TopK:            &topK,
			SemanticWeight:  input.SemanticWeight,
			FullTextWeight:  input.FullTextWeight,
			MetadataFilters: filter,
		})
		if err != nil {
			return nil, ChunksOutput{}, fmt.Errorf("search failed: %w", err)
		}

		if len(resp.Chunks) == 0 {
			return nil, ChunksOutput{
				Chunks:  []ChunkResult{},
				Message: "No matching chunks found. Try broader search terms or fewer filters.",
			}, nil
		}
		return nil, ChunksOutput{Chunks: toChunkResults(resp.Chunks)}, nil
	}
}

// makeGetHandler creates the get_chunks tool handler.
func makeGetHandler(api ContextAPI) func(
	context.Context, *mcp.CallToolRequest, GetChunksInput,
) (*mcp.CallToolResult, ChunksOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetChunksInput) (
		*mcp.CallToolResult, ChunksOutput, error,
	) {
		limit := input.Limit
		if limit <= 0 {
			limit = defaultGetLimit
		}
		filter, err := parseFilters(input.MetadataFilters)
		if err != nil {
			return nil, ChunksOutput{}, err
		}

		resp, err := api.Get(ctx, onecontext.GetArgs{
			ContextName:     input.ContextName,
			Limit:           &limit,
			MetadataFilters: filter,
		})
		if err != nil {
			return nil, ChunksOutput{}, fmt.Errorf("get chunks failed: %w", err)
		}

		if len(resp.Chunks) == 0 {
			return nil, ChunksOutput{Chunks: []ChunkResult{}, Message: "No chunks matched."}, nil
		}
		return nil, ChunksOutput{Chunks: toChunkResults(resp.Chunks)}, nil
	}
}

// makeListContextsHandler creates the list_contexts tool handler.
func makeListContextsHandler(api ContextAPI) func(
	context.Context, *mcp.CallToolRequest, ListContextsInput,
) (*mcp.CallToolResult, ListContextsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListContextsInput) (
		*mcp.CallToolResult, ListContextsOutput, error,
	) {
		raw, err := api.ListContexts(ctx)
		if err != nil {
			return nil, ListContextsOutput{}, fmt.Errorf("failed to list contexts: %w", err)
		}

		var contexts any
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &contexts); err != nil {
				return nil, ListContextsOutput{}, fmt.Errorf("decode contexts: %w", err)
			}
		}
		return nil, ListContextsOutput{Contexts: contexts}, nil
	}
}

// makeListFilesHandler creates the list_files tool handler.
func makeListFilesHandler(api ContextAPI) func(
	context.Context, *mcp.CallToolRequest, ListFilesInput,
) (*mcp.CallToolResult, ListFilesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListFilesInput) (
		*mcp.CallToolResult, ListFilesOutput, error,
	) {
		filter, err := parseFilters(input.MetadataFilters)
		if err != nil {
			return nil, ListFilesOutput{}, err
		}

		args := onecontext.ListFilesArgs{
			ContextName:     input.ContextName,
			Skip:            onecontext.Ptr(max(input.Skip, 0)),
			MetadataFilters: filter,
		}
		if input.Limit > 0 {
			args.Limit = &input.Limit
		}

		resp, err := api.ListFiles(ctx, args)
		if err != nil {
			return nil, ListFilesOutput{}, fmt.Errorf("failed to list files: %w", err)
		}

		files := make([]FileResult, 0, len(resp.Files))
		for _, f := range resp.Files {
			files = append(files, FileResult{
				ID:          f.ID,
				Name:        f.Name,
				Status:      f.Status,
				DateCreated: f.DateCreated,
				Metadata:    f.MetadataJSON,
			})
		}
		return nil, ListFilesOutput{Files: files, Count: len(files)}, nil
	}
}
