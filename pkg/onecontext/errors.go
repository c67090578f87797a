package onecontext

import (
	"errors"
	"fmt"
	"strings"

	"github.com/onecontext/onecontext-go/internal/transport"
)

var (
	ErrMissingAPIKey       = errors.New("onecontext api key is required")
	ErrEmptyFileSet        = errors.New("no eligible files to upload")
	ErrNoSuccessfulUploads = errors.New("no files were successfully uploaded")
	ErrProcessingTimeout   = errors.New("file processing timed out")
)

// HTTPError is a non-2xx API response; Body is the full response text.
type HTTPError = transport.HTTPError

// NetworkError is a transport failure below HTTP.
type NetworkError = transport.NetworkError

// FieldProblem is one rejected argument.
type FieldProblem struct {
	Field   string
	Message string
}

// ValidationError reports malformed arguments, detected before any request is sent.
type ValidationError struct {
	Op       string
	Problems []FieldProblem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Field + " " + p.Message
	}
	return fmt.Sprintf("invalid %s arguments: %s", e.Op, strings.Join(msgs, "; "))
}

// SchemaConversionError means a validated schema produced no usable JSON schema.
type SchemaConversionError struct {
	Err error
}

func (e *SchemaConversionError) Error() string {
	if e.Err == nil {
		return "schema conversion produced no value"
	}
	return fmt.Sprintf("schema conversion failed: %v", e.Err)
}

func (e *SchemaConversionError) Unwrap() error {
	return e.Err
}

// InvalidSchemaTypeError means the schema input was neither a validated schema
// nor a non-nil JSON-schema mapping.
type InvalidSchemaTypeError struct {
	Got any
}

func (e *InvalidSchemaTypeError) Error() string {
	return fmt.Sprintf("invalid schema input: expected a validated schema or a non-nil JSON schema object, got %T", e.Got)
}

// PresignError is a failed request for upload targets. Nothing was uploaded.
type PresignError struct {
	Err error
}

func (e *PresignError) Error() string {
	return fmt.Sprintf("request upload targets: %v", e.Err)
}

func (e *PresignError) Unwrap() error {
	return e.Err
}

// NoSuccessfulUploadsError means every file failed its upload; no commit was sent.
type NoSuccessfulUploadsError struct {
	Failures []FileFailure
}

func (e *NoSuccessfulUploadsError) Error() string {
	return fmt.Sprintf("%v (%d failed)", ErrNoSuccessfulUploads, len(e.Failures))
}

func (e *NoSuccessfulUploadsError) Unwrap() error {
	return ErrNoSuccessfulUploads
}

// CommitError is a failed batch commit. The files in Uploaded are in storage
// but were not registered with the context.
type CommitError struct {
	Uploaded []UploadedFile
	Err      error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %d uploaded files: %v", len(e.Uploaded), e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// ProcessingFailedError lists files the service marked FAILED while processing.
type ProcessingFailedError struct {
	ContextName string
	Files       []FileInfo
}

func (e *ProcessingFailedError) Error() string {
	names := make([]string, len(e.Files))
	for i, f := range e.Files {
		names[i] = f.Name
	}
	return fmt.Sprintf("file processing failed for %d file(s) in context %s: %s",
		len(e.Files), e.ContextName, strings.Join(names, ", "))
}
