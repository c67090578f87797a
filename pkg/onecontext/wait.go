package onecontext

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WaitOptions controls WaitForProcessing. Zero fields take defaults.
type WaitOptions struct {
	Interval    time.Duration // Pause between checks (default 10s)
	MaxAttempts int           // Checks before giving up (default 10)
	PageSize    int           // Files fetched per ListFiles call (default 100)
}

func (o WaitOptions) withDefaults() WaitOptions {
	if o.Interval <= 0 {
		o.Interval = 10 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.PageSize <= 0 {
		o.PageSize = 100
	}
	return o
}

var errStillProcessing = errors.New("files still processing")

// WaitForProcessing polls the files of a context until all are COMPLETED.
// It returns *ProcessingFailedError as soon as any file is FAILED and
// ErrProcessingTimeout when attempts run out.
func (c *Client) WaitForProcessing(ctx context.Context, contextName string, opts WaitOptions) error {
	opts = opts.withDefaults()

	check := func() error {
		files, err := c.listAllFiles(ctx, contextName, opts.PageSize)
		if err != nil {
			return backoff.Permanent(err)
		}

		var failed []FileInfo
		pending := 0
		for _, f := range files {
			switch f.Status {
			case FileStatusCompleted:
			case FileStatusFailed:
				failed = append(failed, f)
			default:
				pending++
			}
		}
		if len(failed) > 0 {
			return backoff.Permanent(&ProcessingFailedError{ContextName: contextName, Files: failed})
		}
		if pending > 0 {
			c.logger.Debug("Files still processing", "context", contextName, "pending", pending, "total", len(files))
			return errStillProcessing
		}
		return nil
	}

	schedule := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(opts.Interval), uint64(opts.MaxAttempts-1)),
		ctx,
	)
	err := backoff.Retry(check, schedule)
	if errors.Is(err, errStillProcessing) {
		return fmt.Errorf("%w for context %s", ErrProcessingTimeout, contextName)
	}
	return err
}

func (c *Client) listAllFiles(ctx context.Context, contextName string, pageSize int) ([]FileInfo, error) {
	var all []FileInfo
	for skip := 0; ; skip += pageSize {
		page, err := c.ListFiles(ctx, ListFilesArgs{
			ContextName: contextName,
			Skip:        Ptr(skip),
			Limit:       Ptr(pageSize),
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page.Files...)
		if len(page.Files) < pageSize {
			return all, nil
		}
	}
}
