package onecontext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/onecontext/onecontext-go/internal/files"
	"github.com/onecontext/onecontext-go/internal/transport"
)

// DefaultUploadConcurrency caps in-flight storage PUTs per upload call.
const DefaultUploadConcurrency = 8

// Stage is a step of the upload pipeline.
type Stage int

const (
	StageCollecting Stage = iota
	StagePresigning
	StageUploading
	StageCommitting
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageCollecting:
		return "collecting"
	case StagePresigning:
		return "presigning"
	case StageUploading:
		return "uploading"
	case StageCommitting:
		return "committing"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// FileFailure records a file that could not be uploaded. The rest of the
// batch is unaffected.
type FileFailure struct {
	Path string
	Err  error
}

// UploadReport is the outcome of a committed batch. Response is the commit
// response from the service.
type UploadReport struct {
	Response FlexibleResponse
	Uploaded []UploadedFile
	Failed   []FileFailure
}

type uploadOutcome struct {
	file UploadedFile
	err  error
}

// uploader runs presign → concurrent PUT → commit for one UploadPlan.
type uploader struct {
	api         *transport.Connector
	storage     *http.Client
	logger      *slog.Logger
	concurrency int
}

func (u *uploader) run(ctx context.Context, plan UploadPlan) (*UploadReport, error) {
	u.logger.Info("Starting upload",
		"context", plan.ContextName,
		"files", len(plan.Files),
		"max_chunk_size", plan.MaxChunkSize,
	)

	u.logger.Debug("Requesting upload targets", "stage", StagePresigning, "files", len(plan.Files))
	targets, err := u.presign(ctx, plan.Presign)
	if err != nil {
		u.logger.Error("Upload failed", "stage", StagePresigning, "error", err)
		return nil, &PresignError{Err: err}
	}

	u.logger.Debug("Uploading files", "stage", StageUploading, "concurrency", u.concurrency)
	outcomes, err := u.uploadAll(ctx, plan, targets)
	if err != nil {
		return nil, err
	}

	report := &UploadReport{}
	for i, outcome := range outcomes {
		if outcome.err != nil {
			report.Failed = append(report.Failed, FileFailure{Path: plan.Files[i].Path, Err: outcome.err})
			continue
		}
		report.Uploaded = append(report.Uploaded, outcome.file)
	}
	if len(report.Uploaded) == 0 {
		u.logger.Error("Upload failed", "stage", StageUploading, "failed", len(report.Failed))
		return nil, &NoSuccessfulUploadsError{Failures: report.Failed}
	}

	u.logger.Debug("Committing uploaded files", "stage", StageCommitting, "files", len(report.Uploaded))
	resp, err := transport.Request[FlexibleResponse](ctx, u.api, http.MethodPost, endpointProcessUploaded, CommitPayload{
		Files:        report.Uploaded,
		ContextName:  plan.ContextName,
		MaxChunkSize: plan.MaxChunkSize,
	})
	if err != nil {
		u.logger.Error("Upload failed", "stage", StageCommitting, "orphaned", len(report.Uploaded), "error", err)
		return nil, &CommitError{Uploaded: report.Uploaded, Err: err}
	}
	report.Response = resp

	u.logger.Info("Upload complete",
		"stage", StageDone,
		"context", plan.ContextName,
		"uploaded", len(report.Uploaded),
		"failed", len(report.Failed),
	)
	return report, nil
}

// presign requests one target per file name. The response is matched to the
// request by position, so its length and contents are checked strictly.
func (u *uploader) presign(ctx context.Context, payload PresignPayload) ([]UploadTarget, error) {
	targets, err := transport.Request[[]UploadTarget](ctx, u.api, http.MethodPost, endpointPresignUpload, payload)
	if err != nil {
		return nil, err
	}
	if len(targets) != len(payload.FileNames) {
		return nil, fmt.Errorf("expected %d upload targets, got %d", len(payload.FileNames), len(targets))
	}
	for i, t := range targets {
		if err := validateTarget(t); err != nil {
			return nil, fmt.Errorf("upload target %d (%s): %w", i, payload.FileNames[i], err)
		}
	}
	return targets, nil
}

func validateTarget(t UploadTarget) error {
	u, err := url.Parse(t.PresignedURL)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("invalid presigned url %q", t.PresignedURL)
	}
	if _, err := uuid.Parse(t.FileID); err != nil {
		return fmt.Errorf("invalid file id %q: %w", t.FileID, err)
	}
	return nil
}

// uploadAll PUTs every file to its target, at most u.concurrency at a time.
// Each goroutine writes only its own slot, so outcomes needs no locking.
func (u *uploader) uploadAll(ctx context.Context, plan UploadPlan, targets []UploadTarget) ([]uploadOutcome, error) {
	outcomes := make([]uploadOutcome, len(plan.Files))

	var g errgroup.Group
	g.SetLimit(u.concurrency)
	for i := range plan.Files {
		g.Go(func() error {
			file, err := u.uploadOne(ctx, plan.Files[i], targets[i], plan.Metadata[i])
			if err != nil {
				u.logger.Warn("Failed to upload file", "path", plan.Files[i].Path, "error", err)
			}
			outcomes[i] = uploadOutcome{file: file, err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("upload cancelled: %w", err)
	}
	return outcomes, nil
}

func (u *uploader) uploadOne(ctx context.Context, f File, target UploadTarget, metadata Metadata) (UploadedFile, error) {
	content, err := os.ReadFile(f.Path)
	if err != nil {
		return UploadedFile{}, fmt.Errorf("read file: %w", err)
	}
	fileType := files.MimeType(f.Path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.PresignedURL, bytes.NewReader(content))
	if err != nil {
		return UploadedFile{}, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", fileType)

	resp, err := u.storage.Do(req)
	if err != nil {
		return UploadedFile{}, &transport.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return UploadedFile{}, fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return UploadedFile{}, &transport.HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return UploadedFile{
		FileID:       target.FileID,
		FileName:     filepath.Base(f.Path),
		FileType:     fileType,
		GCSURI:       target.GCSURI,
		MetadataJSON: metadata,
	}, nil
}
