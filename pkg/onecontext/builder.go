package onecontext

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Builder turns caller arguments into request payloads. It validates, fills
// defaults and normalizes structured-output schemas; it never performs I/O.
type Builder struct {
	defaults Defaults
	validate *validator.Validate
}

// NewBuilder returns a Builder that fills omitted arguments from d.
func NewBuilder(d Defaults) *Builder {
	return &Builder{
		defaults: d,
		validate: newValidator(),
	}
}

// Defaults returns a copy of the builder's defaults.
func (b *Builder) Defaults() Defaults {
	return b.defaults
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// check runs struct validation and converts failures into a *ValidationError.
func (b *Builder) check(op string, args any) error {
	err := b.validate.Struct(args)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate %s arguments: %w", op, err)
	}

	problems := make([]FieldProblem, len(fieldErrs))
	for i, fe := range fieldErrs {
		problems[i] = FieldProblem{Field: fieldPath(fe), Message: ruleMessage(fe)}
	}
	return &ValidationError{Op: op, Problems: problems}
}

// fieldPath drops the struct name from the namespace: "files[1].path".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "notblank", "required":
		return "cannot be empty"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		if fe.Field() == "semanticWeight" || fe.Field() == "fullTextWeight" {
			return "must be between 0 and 1"
		}
		return "must be at least " + fe.Param()
	case "lte":
		if fe.Field() == "semanticWeight" || fe.Field() == "fullTextWeight" {
			return "must be between 0 and 1"
		}
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

func (b *Builder) structuredOutput(args *StructuredOutputArgs) (*StructuredOutputRequest, error) {
	if args == nil {
		return nil, nil
	}
	req, err := normalize(args.Schema, args.Prompt, args.Model, b.defaults)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// BuildSearch validates args and returns the hybrid-search payload.
func (b *Builder) BuildSearch(args SearchArgs) (SearchPayload, error) {
	if err := b.check("search", args); err != nil {
		return SearchPayload{}, err
	}
	filters, err := marshalFilter(args.MetadataFilters)
	if err != nil {
		return SearchPayload{}, err
	}
	so, err := b.structuredOutput(args.StructuredOutput)
	if err != nil {
		return SearchPayload{}, err
	}

	return SearchPayload{
		Query:                   args.Query,
		ContextName:             args.ContextName,
		MetadataFilters:         filters,
		TopK:                    args.TopK,
		SemanticWeight:          valueOr(args.SemanticWeight, b.defaults.SemanticWeight),
		FullTextWeight:          valueOr(args.FullTextWeight, b.defaults.FullTextWeight),
		RRFK:                    valueOr(args.RRFK, b.defaults.RRFK),
		IncludeEmbedding:        valueOr(args.IncludeEmbedding, b.defaults.IncludeEmbedding),
		StructuredOutputRequest: so,
	}, nil
}

// BuildGet validates args and returns the chunk-filter payload.
func (b *Builder) BuildGet(args GetArgs) (GetPayload, error) {
	if err := b.check("get", args); err != nil {
		return GetPayload{}, err
	}
	filters, err := marshalFilter(args.MetadataFilters)
	if err != nil {
		return GetPayload{}, err
	}
	so, err := b.structuredOutput(args.StructuredOutput)
	if err != nil {
		return GetPayload{}, err
	}

	return GetPayload{
		ContextName:             args.ContextName,
		MetadataFilters:         filters,
		Limit:                   args.Limit,
		IncludeEmbedding:        valueOr(args.IncludeEmbedding, b.defaults.IncludeEmbedding),
		StructuredOutputRequest: so,
	}, nil
}

// BuildCreateContext validates args for context creation.
func (b *Builder) BuildCreateContext(args ContextArgs) (ContextPayload, error) {
	if err := b.check("create context", args); err != nil {
		return ContextPayload{}, err
	}
	return ContextPayload{ContextName: args.ContextName}, nil
}

// BuildDeleteContext validates args for context deletion.
func (b *Builder) BuildDeleteContext(args ContextArgs) (ContextPayload, error) {
	if err := b.check("delete context", args); err != nil {
		return ContextPayload{}, err
	}
	return ContextPayload{ContextName: args.ContextName}, nil
}

// BuildListFiles validates args and fills paging defaults.
func (b *Builder) BuildListFiles(args ListFilesArgs) (ListFilesPayload, error) {
	if err := b.check("list files", args); err != nil {
		return ListFilesPayload{}, err
	}
	filters, err := marshalFilter(args.MetadataFilters)
	if err != nil {
		return ListFilesPayload{}, err
	}
	sort := args.Sort
	if sort == "" {
		sort = b.defaults.ListSort
	}

	return ListFilesPayload{
		ContextName:     args.ContextName,
		Skip:            valueOr(args.Skip, b.defaults.ListSkip),
		Limit:           valueOr(args.Limit, b.defaults.ListLimit),
		Sort:            sort,
		MetadataFilters: filters,
	}, nil
}

// BuildDeleteFile validates args for file deletion.
func (b *Builder) BuildDeleteFile(args FileIDArgs) (FileIDPayload, error) {
	if err := b.check("delete file", args); err != nil {
		return FileIDPayload{}, err
	}
	return FileIDPayload{FileID: args.FileID}, nil
}

// BuildDownloadURL validates args for a download-url request.
func (b *Builder) BuildDownloadURL(args FileIDArgs) (FileIDPayload, error) {
	if err := b.check("download url", args); err != nil {
		return FileIDPayload{}, err
	}
	return FileIDPayload{FileID: args.FileID}, nil
}

// BuildSetAPIKey validates the OpenAI key payload.
func (b *Builder) BuildSetAPIKey(args SetAPIKeyArgs) (SetAPIKeyPayload, error) {
	if err := b.check("set api key", args); err != nil {
		return SetAPIKeyPayload{}, err
	}
	return SetAPIKeyPayload{OpenAIAPIKey: strings.TrimSpace(args.OpenAIAPIKey)}, nil
}

// UploadPlan is a validated upload batch: the presign request plus what the
// pipeline needs to build each file's commit entry. Metadata[i] belongs to Files[i].
type UploadPlan struct {
	ContextName  string
	Files        []File
	Metadata     []Metadata
	MaxChunkSize int
	Presign      PresignPayload
}

// BuildUploadFiles validates args and plans the batch. File names are the
// base names of the paths, in input order.
func (b *Builder) BuildUploadFiles(args UploadFilesArgs) (UploadPlan, error) {
	if err := b.check("upload files", args); err != nil {
		return UploadPlan{}, err
	}
	if args.FileMetadata != nil {
		if args.Metadata != nil {
			return UploadPlan{}, &ValidationError{Op: "upload files", Problems: []FieldProblem{
				{Field: "fileMetadataJson", Message: "cannot be combined with metadataJson"},
			}}
		}
		if len(args.FileMetadata) != len(args.Files) {
			return UploadPlan{}, &ValidationError{Op: "upload files", Problems: []FieldProblem{{
				Field:   "fileMetadataJson",
				Message: fmt.Sprintf("must have one entry per file (%d files, %d entries)", len(args.Files), len(args.FileMetadata)),
			}}}
		}
	}
	if len(args.Files) == 0 {
		return UploadPlan{}, ErrEmptyFileSet
	}

	names := make([]string, len(args.Files))
	metadata := make([]Metadata, len(args.Files))
	for i, f := range args.Files {
		names[i] = filepath.Base(f.Path)
		if args.FileMetadata != nil {
			metadata[i] = args.FileMetadata[i]
		} else {
			metadata[i] = args.Metadata
		}
	}

	return UploadPlan{
		ContextName:  args.ContextName,
		Files:        args.Files,
		Metadata:     metadata,
		MaxChunkSize: valueOr(args.MaxChunkSize, b.defaults.MaxChunkSize),
		Presign: PresignPayload{
			FileNames:   names,
			ContextName: args.ContextName,
		},
	}, nil
}

// BuildUploadDirectory validates args and fills the chunk-size default.
// Whether Directory is a directory is checked by the client before walking.
func (b *Builder) BuildUploadDirectory(args UploadDirectoryArgs) (UploadDirectoryArgs, error) {
	if err := b.check("upload directory", args); err != nil {
		return UploadDirectoryArgs{}, err
	}
	args.MaxChunkSize = Ptr(valueOr(args.MaxChunkSize, b.defaults.MaxChunkSize))
	return args, nil
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
