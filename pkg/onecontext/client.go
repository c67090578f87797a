package onecontext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/onecontext/onecontext-go/internal/files"
	"github.com/onecontext/onecontext-go/internal/transport"
)

const (
	endpointContext         = "context"
	endpointSearch          = "context/chunk/search"
	endpointChunks          = "context/chunk"
	endpointFile            = "context/file"
	endpointDownloadURL     = "context/file/presigned-download-url"
	endpointPresignUpload   = "context/file/presigned-upload-url"
	endpointProcessUploaded = "context/file/process-uploaded"
	endpointUserMeta        = "user/updateUserMeta"
)

// Config holds client settings. Only APIKey is required.
type Config struct {
	APIKey    string
	OpenAIKey string // Sent with every request; empty when unset
	BaseURL   string // Defaults to the production API

	// Defaults overrides builder defaults; nil uses DefaultValues().
	Defaults *Defaults
	// UploadConcurrency caps parallel storage PUTs per upload (default 8).
	UploadConcurrency int

	RequestTimeout        time.Duration
	ConnTimeout           time.Duration
	KeepAlive             time.Duration
	IdleConnTimeout       time.Duration
	ResponseHeaderTimeout time.Duration

	Logger *slog.Logger
}

// Client talks to the OneContext API. It holds only immutable configuration
// and is safe for concurrent use.
type Client struct {
	api      *transport.Connector
	builder  *Builder
	uploader *uploader
	logger   *slog.Logger
}

// NewClient creates a client from cfg.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultValues()
	if cfg.Defaults != nil {
		defaults = *cfg.Defaults
	}
	concurrency := cfg.UploadConcurrency
	if concurrency <= 0 {
		concurrency = DefaultUploadConcurrency
	}

	httpOpts := []transport.Option{
		transport.WithRequestTimeout(cfg.RequestTimeout),
		transport.WithConnTimeout(cfg.ConnTimeout),
		transport.WithKeepAlive(cfg.KeepAlive),
		transport.WithIdleConnTimeout(cfg.IdleConnTimeout),
		transport.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		transport.WithMaxIdleConnsPerHost(concurrency),
		transport.WithRequestLogging(logger),
	}

	api, err := transport.NewConnector(cfg.BaseURL,
		append(httpOpts, transport.WithAPIKeys(cfg.APIKey, cfg.OpenAIKey))...)
	if err != nil {
		return nil, fmt.Errorf("create api connector: %w", err)
	}

	return &Client{
		api:     api,
		builder: NewBuilder(defaults),
		uploader: &uploader{
			api:         api,
			storage:     transport.NewHTTPClient(httpOpts...),
			logger:      logger,
			concurrency: concurrency,
		},
		logger: logger,
	}, nil
}

// CreateContext creates a named context.
func (c *Client) CreateContext(ctx context.Context, args ContextArgs) (*Context, error) {
	payload, err := c.builder.BuildCreateContext(args)
	if err != nil {
		return nil, err
	}
	created, err := transport.Request[Context](ctx, c.api, http.MethodPost, endpointContext, payload)
	if err != nil {
		return nil, fmt.Errorf("create context %s: %w", args.ContextName, err)
	}
	return &created, nil
}

// DeleteContext deletes a context and everything in it.
func (c *Client) DeleteContext(ctx context.Context, args ContextArgs) (FlexibleResponse, error) {
	payload, err := c.builder.BuildDeleteContext(args)
	if err != nil {
		return nil, err
	}
	resp, err := transport.Request[FlexibleResponse](ctx, c.api, http.MethodDelete, endpointContext, payload)
	if err != nil {
		return nil, fmt.Errorf("delete context %s: %w", args.ContextName, err)
	}
	return resp, nil
}

// ListContexts returns the account's contexts as sent by the service.
func (c *Client) ListContexts(ctx context.Context) (json.RawMessage, error) {
	resp, err := transport.Request[json.RawMessage](ctx, c.api, http.MethodGet, endpointContext, nil)
	if err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}
	return resp, nil
}

// Health reports whether the API is reachable with the configured key.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.ListContexts(ctx)
	return err
}

// Search runs a hybrid semantic and full-text search within a context.
func (c *Client) Search(ctx context.Context, args SearchArgs) (*ChunkOperationResponse, error) {
	payload, err := c.builder.BuildSearch(args)
	if err != nil {
		return nil, err
	}
	resp, err := transport.Request[ChunkOperationResponse](ctx, c.api, http.MethodPost, endpointSearch, payload)
	if err != nil {
		return nil, fmt.Errorf("search context %s: %w", args.ContextName, err)
	}
	return &resp, nil
}

// Get returns chunks of a context matching metadata filters, without a query.
func (c *Client) Get(ctx context.Context, args GetArgs) (*ChunkOperationResponse, error) {
	payload, err := c.builder.BuildGet(args)
	if err != nil {
		return nil, err
	}
	resp, err := transport.Request[ChunkOperationResponse](ctx, c.api, http.MethodPost, endpointChunks, payload)
	if err != nil {
		return nil, fmt.Errorf("get chunks from %s: %w", args.ContextName, err)
	}
	return &resp, nil
}

// DeleteFile removes a file and its chunks.
func (c *Client) DeleteFile(ctx context.Context, args FileIDArgs) (FlexibleResponse, error) {
	payload, err := c.builder.BuildDeleteFile(args)
	if err != nil {
		return nil, err
	}
	resp, err := transport.Request[FlexibleResponse](ctx, c.api, http.MethodDelete, endpointFile, payload)
	if err != nil {
		return nil, fmt.Errorf("delete file %s: %w", args.FileID, err)
	}
	return resp, nil
}

// ListFiles lists one page of the files in a context.
func (c *Client) ListFiles(ctx context.Context, args ListFilesArgs) (*ListFilesResponse, error) {
	payload, err := c.builder.BuildListFiles(args)
	if err != nil {
		return nil, err
	}
	resp, err := transport.Request[ListFilesResponse](ctx, c.api, http.MethodPost, endpointFile, payload)
	if err != nil {
		return nil, fmt.Errorf("list files in %s: %w", args.ContextName, err)
	}
	return &resp, nil
}

// GetDownloadURL returns a time-limited download URL for a file.
func (c *Client) GetDownloadURL(ctx context.Context, args FileIDArgs) (FlexibleResponse, error) {
	payload, err := c.builder.BuildDownloadURL(args)
	if err != nil {
		return nil, err
	}
	resp, err := transport.Request[FlexibleResponse](ctx, c.api, http.MethodPost, endpointDownloadURL, payload)
	if err != nil {
		return nil, fmt.Errorf("get download url for %s: %w", args.FileID, err)
	}
	return resp, nil
}

// SetOpenAIAPIKey stores an encrypted OpenAI key on the user account.
// Passing the key per request via Config.OpenAIKey is the faster alternative.
func (c *Client) SetOpenAIAPIKey(ctx context.Context, args SetAPIKeyArgs) (FlexibleResponse, error) {
	payload, err := c.builder.BuildSetAPIKey(args)
	if err != nil {
		return nil, err
	}
	resp, err := transport.Request[FlexibleResponse](ctx, c.api, http.MethodPost, endpointUserMeta, payload)
	if err != nil {
		return nil, fmt.Errorf("set openai api key: %w", err)
	}
	return resp, nil
}

// UploadFiles uploads a batch of local files to a context and commits them
// for processing. Files that fail to upload are skipped and listed in the
// report; the call fails only if none succeed or the commit fails.
func (c *Client) UploadFiles(ctx context.Context, args UploadFilesArgs) (*UploadReport, error) {
	plan, err := c.builder.BuildUploadFiles(args)
	if err != nil {
		return nil, err
	}
	return c.uploader.run(ctx, plan)
}

// UploadDirectory uploads every eligible file (.txt, .pdf, .docx, .doc) found
// recursively under a directory, as one batch.
func (c *Client) UploadDirectory(ctx context.Context, args UploadDirectoryArgs) (*UploadReport, error) {
	args, err := c.builder.BuildUploadDirectory(args)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(args.Directory)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", args.Directory, err)
	}
	if err != nil || !info.IsDir() {
		return nil, &ValidationError{Op: "upload directory", Problems: []FieldProblem{
			{Field: "directory", Message: "must be an existing directory"},
		}}
	}

	var found []File
	for entry, err := range files.Walk(args.Directory) {
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", args.Directory, err)
		}
		found = append(found, File{Path: entry.Path})
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%s: %w", args.Directory, ErrEmptyFileSet)
	}
	c.logger.Debug("Collected files", "stage", StageCollecting, "directory", args.Directory, "files", len(found))

	return c.UploadFiles(ctx, UploadFilesArgs{
		Files:        found,
		ContextName:  args.ContextName,
		Metadata:     args.Metadata,
		MaxChunkSize: args.MaxChunkSize,
	})
}
