// Package main provides the onecontext CLI for managing contexts, files and search.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/onecontext/onecontext-go/internal/config"
	"github.com/onecontext/onecontext-go/pkg/onecontext"
)

// app carries what every subcommand needs once configuration has loaded.
type app struct {
	cfg    *config.Config
	client *onecontext.Client
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "onecontext",
		Short: "OneContext document context CLI",
		Long: `Command line client for the OneContext API.

Environment variables:
  ONECONTEXT_API_KEY  OneContext API key (required)
  OPENAI_API_KEY      OpenAI key sent with each request (optional)
  BASE_URL            API root (default: https://app.onecontext.ai/api/v5/)
  UPLOAD_CONCURRENCY  Parallel storage uploads per batch (default: 8)
  MAX_CHUNK_SIZE      Default chunk size for uploads (default: 600)
  LOG_LEVEL           debug, info, warn or error (default: info)

A .env file in the working directory is loaded if present.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	root.AddCommand(
		newContextCmd(a),
		newSearchCmd(a),
		newGetCmd(a),
		newFilesCmd(a),
		newSetKeyCmd(a),
		newSchemaCmd(),
	)
	return root
}

func (a *app) init(logOut io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = cfg.NewLogger(logOut)
	a.client, err = onecontext.NewClient(cfg.ClientConfig(a.logger))
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
