// Package onecontext is a client for the OneContext document-context API:
// named contexts of chunked, embedded documents with hybrid search.
package onecontext

import (
	"encoding/json"

	"github.com/openai/openai-go"
)

// Metadata is a free-form JSON object attached to files and matched by filters.
type Metadata = map[string]any

// Context is a named server-side collection of chunks.
type Context struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Chunk is a retrievable unit of text returned by Search and Get.
type Chunk struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	UserID        string    `json:"user_id"`
	FileName      string    `json:"file_name"`
	FileID        string    `json:"file_id"`
	ContextID     string    `json:"context_id"`
	MetadataJSON  Metadata  `json:"metadata_json,omitempty"`
	Embedding     []float64 `json:"embedding,omitempty"`
	SemanticScore *float64  `json:"semantic_score,omitempty"`
	FulltextScore *float64  `json:"fulltext_score,omitempty"`
	CombinedScore *float64  `json:"combined_score,omitempty"`
}

// ChunkOperationResponse is the result of Search and Get. Output holds the
// structured output when one was requested.
type ChunkOperationResponse struct {
	Chunks []Chunk         `json:"chunks"`
	Output json.RawMessage `json:"output,omitempty"`
}

// File processing states reported by ListFiles.
const (
	FileStatusCompleted = "COMPLETED"
	FileStatusFailed    = "FAILED"
)

// FileInfo describes a file registered with a context.
type FileInfo struct {
	ID           string   `json:"id"`
	DateCreated  string   `json:"date_created"`
	Status       string   `json:"status"`
	Name         string   `json:"name"`
	ContextName  string   `json:"context_name"`
	ContextID    string   `json:"context_id"`
	MetadataJSON Metadata `json:"metadata_json,omitempty"`
	DownloadURL  string   `json:"download_url,omitempty"`
}

// ListFilesResponse is one page of ListFiles.
type ListFilesResponse struct {
	Files []FileInfo `json:"files"`
}

// FlexibleResponse is an acknowledgement object whose shape beyond "message"
// is not fixed by the API.
type FlexibleResponse map[string]any

// Message returns the "message" field, or "" when absent.
func (r FlexibleResponse) Message() string {
	m, _ := r["message"].(string)
	return m
}

// StructuredOutputRequest asks the service to generate output conforming to a schema.
type StructuredOutputRequest struct {
	StructuredOutputSchema map[string]any   `json:"structuredOutputSchema"`
	Prompt                 string           `json:"prompt"`
	Model                  openai.ChatModel `json:"model"`
}

// StructuredOutputArgs is the caller-facing form of a structured-output request.
// Empty Prompt and Model take the builder defaults.
type StructuredOutputArgs struct {
	Schema SchemaInput      `json:"-" validate:"-"`
	Prompt string           `json:"prompt"`
	Model  openai.ChatModel `json:"model"`
}

// SearchArgs are the arguments of a hybrid search. Nil pointers take the builder defaults.
type SearchArgs struct {
	Query            string                `json:"query" validate:"notblank"`
	ContextName      string                `json:"contextName" validate:"notblank"`
	MetadataFilters  Filter                `json:"metadataFilters" validate:"-"`
	TopK             *int                  `json:"topK" validate:"omitempty,gt=0"`
	SemanticWeight   *float64              `json:"semanticWeight" validate:"omitempty,gte=0,lte=1"`
	FullTextWeight   *float64              `json:"fullTextWeight" validate:"omitempty,gte=0,lte=1"`
	RRFK             *int                  `json:"rrfK" validate:"omitempty,gt=0"`
	IncludeEmbedding *bool                 `json:"includeEmbedding"`
	StructuredOutput *StructuredOutputArgs `json:"structuredOutputRequest" validate:"-"`
}

// SearchPayload is the body of POST context/chunk/search. A nil TopK is sent
// as null, meaning no cap.
type SearchPayload struct {
	Query                   string                   `json:"query"`
	ContextName             string                   `json:"contextName"`
	MetadataFilters         json.RawMessage          `json:"metadataFilters"`
	TopK                    *int                     `json:"topK"`
	SemanticWeight          float64                  `json:"semanticWeight"`
	FullTextWeight          float64                  `json:"fullTextWeight"`
	RRFK                    int                      `json:"rrfK"`
	IncludeEmbedding        bool                     `json:"includeEmbedding"`
	StructuredOutputRequest *StructuredOutputRequest `json:"structuredOutputRequest,omitempty"`
}

// GetArgs select chunks by metadata filter without a query.
type GetArgs struct {
	ContextName      string                `json:"contextName" validate:"notblank"`
	MetadataFilters  Filter                `json:"metadataFilters" validate:"-"`
	Limit            *int                  `json:"limit" validate:"omitempty,gt=0"`
	IncludeEmbedding *bool                 `json:"includeEmbedding"`
	StructuredOutput *StructuredOutputArgs `json:"structuredOutputRequest" validate:"-"`
}

// GetPayload is the body of POST context/chunk. A nil Limit is sent as null.
type GetPayload struct {
	ContextName             string                   `json:"contextName"`
	MetadataFilters         json.RawMessage          `json:"metadataFilters"`
	Limit                   *int                     `json:"limit"`
	IncludeEmbedding        bool                     `json:"includeEmbedding"`
	StructuredOutputRequest *StructuredOutputRequest `json:"structuredOutputRequest,omitempty"`
}

// ContextArgs name a context to create or delete.
type ContextArgs struct {
	ContextName string `json:"contextName" validate:"notblank"`
}

// ContextPayload is the body of context create and delete.
type ContextPayload struct {
	ContextName string `json:"contextName"`
}

// ListFilesArgs page through the files of a context.
type ListFilesArgs struct {
	ContextName     string `json:"contextName" validate:"notblank"`
	Skip            *int   `json:"skip" validate:"omitempty,gte=0"`
	Limit           *int   `json:"limit" validate:"omitempty,gt=0"`
	Sort            string `json:"sort"`
	MetadataFilters Filter `json:"metadataFilters" validate:"-"`
}

// ListFilesPayload is the body of POST context/file.
type ListFilesPayload struct {
	ContextName     string          `json:"contextName"`
	Skip            int             `json:"skip"`
	Limit           int             `json:"limit"`
	Sort            string          `json:"sort"`
	MetadataFilters json.RawMessage `json:"metadataFilters"`
}

// FileIDArgs identify one uploaded file.
type FileIDArgs struct {
	FileID string `json:"fileId" validate:"notblank"`
}

// FileIDPayload is the body of file delete and download-url requests.
type FileIDPayload struct {
	FileID string `json:"fileId"`
}

// SetAPIKeyArgs carry the OpenAI key stored on the account.
type SetAPIKeyArgs struct {
	OpenAIAPIKey string `json:"openAIApiKey" validate:"notblank"`
}

// SetAPIKeyPayload is the body of POST user/updateUserMeta.
type SetAPIKeyPayload struct {
	OpenAIAPIKey string `json:"openAIApiKey"`
}

// File is a local document to upload.
type File struct {
	Path string `json:"path" validate:"notblank"`
}

// UploadFilesArgs describes one upload batch. Metadata applies to every file;
// FileMetadata, when set, must have one entry per file in the same order.
type UploadFilesArgs struct {
	Files        []File     `json:"files" validate:"dive"`
	ContextName  string     `json:"contextName" validate:"notblank"`
	Metadata     Metadata   `json:"metadataJson" validate:"-"`
	FileMetadata []Metadata `json:"fileMetadataJson" validate:"-"`
	MaxChunkSize *int       `json:"maxChunkSize" validate:"omitempty,gt=0"`
}

// UploadDirectoryArgs upload every eligible file under Directory.
type UploadDirectoryArgs struct {
	Directory    string   `json:"directory" validate:"notblank"`
	ContextName  string   `json:"contextName" validate:"notblank"`
	Metadata     Metadata `json:"metadataJson" validate:"-"`
	MaxChunkSize *int     `json:"maxChunkSize" validate:"omitempty,gt=0"`
}

// PresignPayload is the body of POST context/file/presigned-upload-url.
type PresignPayload struct {
	FileNames   []string `json:"fileNames"`
	ContextName string   `json:"contextName"`
}

// UploadTarget is a presigned storage destination for one requested file name.
type UploadTarget struct {
	PresignedURL string `json:"presignedUrl"`
	ExpiresAt    string `json:"expiresAt"`
	FileID       string `json:"fileId"`
	GCSURI       string `json:"gcsUri"`
}

// UploadedFile describes a file whose bytes reached storage.
type UploadedFile struct {
	FileID       string   `json:"fileId"`
	FileName     string   `json:"fileName"`
	FileType     string   `json:"fileType"`
	GCSURI       string   `json:"gcsUri"`
	MetadataJSON Metadata `json:"metadataJson,omitempty"`
}

// CommitPayload is the body of POST context/file/process-uploaded.
type CommitPayload struct {
	Files        []UploadedFile `json:"files"`
	ContextName  string         `json:"contextName"`
	MaxChunkSize int            `json:"maxChunkSize"`
}

// Ptr returns a pointer to v, for optional arguments.
func Ptr[T any](v T) *T {
	return &v
}
