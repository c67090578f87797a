// Package config loads the environment shared by the CLI and the MCP server.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/onecontext/onecontext-go/pkg/onecontext"
)

// Config holds the process configuration.
type Config struct {
	APIKey    string `env:"ONECONTEXT_API_KEY"`
	OpenAIKey string `env:"OPENAI_API_KEY"`
	BaseURL   string `env:"BASE_URL" envDefault:"https://app.onecontext.ai/api/v5/"`

	HTTP HTTPClientConfig `envPrefix:"HTTP_"`

	UploadConcurrency int `env:"UPLOAD_CONCURRENCY" envDefault:"8"`
	MaxChunkSize      int `env:"MAX_CHUNK_SIZE" envDefault:"600"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// MCP server
	Port       string `env:"PORT" envDefault:"8080"`
	ServerMode bool   `env:"SERVER_MODE" envDefault:"false"`
}

// HTTPClientConfig holds the HTTP_ prefixed client timeouts.
type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"5m"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"30s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"60s"`
}

// Load reads envFiles (".env" when none are given) into the environment,
// then parses it. Missing env files are ignored; variables already set win.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.UploadConcurrency < 1 || c.UploadConcurrency > 64 {
		errs = append(errs, fmt.Errorf("UPLOAD_CONCURRENCY must be between 1 and 64, got %d", c.UploadConcurrency))
	}
	if c.MaxChunkSize < 1 {
		errs = append(errs, fmt.Errorf("MAX_CHUNK_SIZE must be positive, got %d", c.MaxChunkSize))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RequireAPIKey fails with a hint when ONECONTEXT_API_KEY is unset.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: set ONECONTEXT_API_KEY in the environment or a .env file", onecontext.ErrMissingAPIKey)
	}
	return nil
}

// ClientConfig converts the environment into client settings.
func (c *Config) ClientConfig(logger *slog.Logger) *onecontext.Config {
	defaults := onecontext.DefaultValues()
	defaults.MaxChunkSize = c.MaxChunkSize

	return &onecontext.Config{
		APIKey:                c.APIKey,
		OpenAIKey:             c.OpenAIKey,
		BaseURL:               c.BaseURL,
		Defaults:              &defaults,
		UploadConcurrency:     c.UploadConcurrency,
		RequestTimeout:        c.HTTP.RequestTimeout,
		ConnTimeout:           c.HTTP.ConnTimeout,
		KeepAlive:             c.HTTP.KeepAlive,
		IdleConnTimeout:       c.HTTP.IdleConnTimeout,
		ResponseHeaderTimeout: c.HTTP.ResponseHeaderTimeout,
		Logger:                logger,
	}
}

// ParseLevel maps a LOG_LEVEL value such as "debug" or "WARN" to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

// NewLogger returns a text logger writing to w at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
