package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/onecontext/onecontext-go/pkg/onecontext"
)

// uploadSummary is the printed form of an UploadReport.
type uploadSummary struct {
	Uploaded []onecontext.UploadedFile   `json:"uploaded"`
	Failed   []failedFile                `json:"failed,omitempty"`
	Response onecontext.FlexibleResponse `json:"response"`
}

type failedFile struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

func summarize(report *onecontext.UploadReport) uploadSummary {
	s := uploadSummary{Uploaded: report.Uploaded, Response: report.Response}
	for _, f := range report.Failed {
		s.Failed = append(s.Failed, failedFile{Path: f.Path, Error: f.Err.Error()})
	}
	return s
}

func parseJSONObject(name, value string) (map[string]any, error) {
	if value == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return nil, fmt.Errorf("%s must be a JSON object: %w", name, err)
	}
	return out, nil
}

func parseFilterFlag(value string) (onecontext.Filter, error) {
	if value == "" {
		return nil, nil
	}
	return onecontext.ParseFilter([]byte(value))
}

// waitFlags control the optional wait for processing after an upload.
type waitFlags struct {
	wait     bool
	interval time.Duration
	attempts int
}

func (f *waitFlags) register(cmd *cobra.Command, withToggle bool) {
	if withToggle {
		cmd.Flags().BoolVar(&f.wait, "wait", false, "wait until the context's files finish processing")
	}
	cmd.Flags().DurationVar(&f.interval, "interval", 10*time.Second, "time between processing checks")
	cmd.Flags().IntVar(&f.attempts, "attempts", 10, "processing checks before giving up")
}

func (f *waitFlags) run(ctx context.Context, a *app, contextName string) error {
	a.logger.Info("Waiting for processing", "context", contextName, "interval", f.interval, "attempts", f.attempts)
	return a.client.WaitForProcessing(ctx, contextName, onecontext.WaitOptions{
		Interval:    f.interval,
		MaxAttempts: f.attempts,
	})
}

func newFilesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Upload, list and delete files in a context",
	}
	cmd.AddCommand(
		newFilesListCmd(a),
		newFileIDCmd(a, "delete <fileId>", "Delete a file and its chunks", a.deleteFile),
		newFileIDCmd(a, "download-url <fileId>", "Get a time-limited download URL for a file", a.downloadURL),
		newUploadCmd(a),
		newUploadDirCmd(a),
		newWaitCmd(a),
	)
	return cmd
}

func (a *app) deleteFile(ctx context.Context, id string) (onecontext.FlexibleResponse, error) {
	return a.client.DeleteFile(ctx, onecontext.FileIDArgs{FileID: id})
}

func (a *app) downloadURL(ctx context.Context, id string) (onecontext.FlexibleResponse, error) {
	return a.client.GetDownloadURL(ctx, onecontext.FileIDArgs{FileID: id})
}

func newFileIDCmd(a *app, use, short string, op func(context.Context, string) (onecontext.FlexibleResponse, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := op(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func newFilesListCmd(a *app) *cobra.Command {
	var (
		skip, limit int
		sort        string
		filter      string
	)

	cmd := &cobra.Command{
		Use:   "list <context>",
		Short: "List files in a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFilterFlag(filter)
			if err != nil {
				return err
			}
			resp, err := a.client.ListFiles(cmd.Context(), onecontext.ListFilesArgs{
				ContextName:     args[0],
				Skip:            &skip,
				Limit:           &limit,
				Sort:            sort,
				MetadataFilters: f,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().IntVar(&skip, "skip", 0, "files to skip")
	cmd.Flags().IntVar(&limit, "limit", 10, "files to return")
	cmd.Flags().StringVar(&sort, "sort", "date_created", "sort field")
	cmd.Flags().StringVar(&filter, "filter", "", "metadata filter as JSON")
	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	var (
		metadata     string
		maxChunkSize int
		batchBytes   int64
		wait         waitFlags
	)

	cmd := &cobra.Command{
		Use:   "upload <context> <file>...",
		Short: "Upload files to a context",
		Long: `Uploads files to a context and commits them for processing.

Files are sent in batches of at most --batch-bytes each; a file larger than
the limit is sent alone. Files that fail to upload are reported and skipped.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := parseJSONObject("metadata", metadata)
			if err != nil {
				return err
			}
			files := make([]onecontext.File, 0, len(args)-1)
			for _, p := range args[1:] {
				files = append(files, onecontext.File{Path: p})
			}
			batches, err := onecontext.SplitBatches(files, batchBytes)
			if err != nil {
				return err
			}

			var summaries []uploadSummary
			for i, batch := range batches {
				a.logger.Info("Uploading batch", "batch", i+1, "of", len(batches), "files", len(batch))
				uploadArgs := onecontext.UploadFilesArgs{
					Files:       batch,
					ContextName: args[0],
					Metadata:    meta,
				}
				if cmd.Flags().Changed("max-chunk-size") {
					uploadArgs.MaxChunkSize = &maxChunkSize
				}
				report, err := a.client.UploadFiles(cmd.Context(), uploadArgs)
				if err != nil {
					return fmt.Errorf("batch %d: %w", i+1, err)
				}
				summaries = append(summaries, summarize(report))
			}

			if err := printJSON(cmd.OutOrStdout(), summaries); err != nil {
				return err
			}
			if wait.wait {
				return wait.run(cmd.Context(), a, args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&metadata, "metadata", "", "metadata JSON object applied to every file")
	cmd.Flags().IntVar(&maxChunkSize, "max-chunk-size", 0, "maximum chunk size (default from MAX_CHUNK_SIZE)")
	cmd.Flags().Int64Var(&batchBytes, "batch-bytes", onecontext.DefaultBatchBytes, "maximum bytes per upload batch")
	wait.register(cmd, true)
	return cmd
}

func newUploadDirCmd(a *app) *cobra.Command {
	var (
		metadata     string
		maxChunkSize int
		wait         waitFlags
	)

	cmd := &cobra.Command{
		Use:   "upload-dir <context> <directory>",
		Short: "Upload every .txt, .pdf, .docx and .doc file under a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := parseJSONObject("metadata", metadata)
			if err != nil {
				return err
			}
			dirArgs := onecontext.UploadDirectoryArgs{
				Directory:   args[1],
				ContextName: args[0],
				Metadata:    meta,
			}
			if cmd.Flags().Changed("max-chunk-size") {
				dirArgs.MaxChunkSize = &maxChunkSize
			}

			start := time.Now()
			report, err := a.client.UploadDirectory(cmd.Context(), dirArgs)
			if err != nil {
				return err
			}
			a.logger.Info("Directory uploaded",
				"uploaded", len(report.Uploaded),
				"failed", len(report.Failed),
				"duration", time.Since(start).Round(time.Millisecond),
			)

			if err := printJSON(cmd.OutOrStdout(), summarize(report)); err != nil {
				return err
			}
			if wait.wait {
				return wait.run(cmd.Context(), a, args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&metadata, "metadata", "", "metadata JSON object applied to every file")
	cmd.Flags().IntVar(&maxChunkSize, "max-chunk-size", 0, "maximum chunk size (default from MAX_CHUNK_SIZE)")
	wait.register(cmd, true)
	return cmd
}

func newWaitCmd(a *app) *cobra.Command {
	var wait waitFlags

	cmd := &cobra.Command{
		Use:   "wait <context>",
		Short: "Wait until every file in a context has finished processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wait.run(cmd.Context(), a, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All files processed")
			return nil
		},
	}
	wait.register(cmd, false)
	return cmd
}
