// Package main provides the MCP server entry point for OneContext.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/onecontext/onecontext-go/internal/config"
	mcpserver "github.com/onecontext/onecontext-go/internal/mcp"
	"github.com/onecontext/onecontext-go/pkg/onecontext"
)

func main() {
	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("MCP server failed", "error", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	// stdout carries the MCP stream in stdio mode, so logs go to stderr.
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	client, err := onecontext.NewClient(cfg.ClientConfig(logger))
	if err != nil {
		return err
	}

	server := mcpserver.NewServer(&mcpserver.Config{
		API:    client,
		Logger: logger,
	})
	mux := mcpserver.NewMux(server, nil)

	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	if cfg.ServerMode {
		// HTTP mode: serve MCP over HTTP for remote clients
		logger.Info("Starting HTTP server", "addr", httpServer.Addr, "mcp", "/mcp", "health", "/health")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	// Stdio mode: the health endpoint still runs in the background for local testing
	go func() {
		logger.Info("Starting health server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Health server stopped", "error", err)
		}
	}()

	return server.Run(ctx)
}
