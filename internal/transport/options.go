package transport

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures the HTTP client built by NewHTTPClient.
type Option func(*httpConfig)

// WithConnTimeout bounds dialing a connection.
func WithConnTimeout(timeout time.Duration) Option {
	return func(c *httpConfig) {
		if timeout > 0 {
			c.connTimeout = timeout
		}
	}
}

// WithRequestTimeout bounds a whole round trip, body included.
// Zero keeps the default; uploads of large files may need more.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *httpConfig) {
		if timeout > 0 {
			c.requestTimeout = timeout
		}
	}
}

// WithKeepAlive sets the TCP keep-alive period.
func WithKeepAlive(keepAlive time.Duration) Option {
	return func(c *httpConfig) {
		if keepAlive > 0 {
			c.keepAlive = keepAlive
		}
	}
}

// WithResponseHeaderTimeout bounds the wait for response headers.
func WithResponseHeaderTimeout(timeout time.Duration) Option {
	return func(c *httpConfig) {
		if timeout > 0 {
			c.responseHeaderTimeout = timeout
		}
	}
}

// WithIdleConnTimeout sets how long idle connections stay pooled.
func WithIdleConnTimeout(timeout time.Duration) Option {
	return func(c *httpConfig) {
		if timeout > 0 {
			c.idleConnTimeout = timeout
		}
	}
}

// WithMaxIdleConnsPerHost caps pooled idle connections per host.
func WithMaxIdleConnsPerHost(n int) Option {
	return func(c *httpConfig) {
		if n > 0 {
			c.maxIdleConnsPerHost = n
		}
	}
}

// WithRoundTripper appends a decorator; decorators wrap in the order given.
func WithRoundTripper(fn RoundTripperFunc) Option {
	return func(c *httpConfig) {
		c.decorators = append(c.decorators, fn)
	}
}

// WithAPIKeys attaches the OneContext and model-provider key headers to every request.
func WithAPIKeys(apiKey, openAIKey string) Option {
	return WithRoundTripper(func(rt http.RoundTripper) http.RoundTripper {
		return &apiKeyTransport{apiKey: apiKey, openAIKey: openAIKey, transport: rt}
	})
}

// WithRequestLogging logs method and URL of each outbound request at debug level.
func WithRequestLogging(logger *slog.Logger) Option {
	return WithRoundTripper(func(rt http.RoundTripper) http.RoundTripper {
		if logger == nil {
			logger = slog.Default()
		}
		return &logTransport{logger: logger, transport: rt}
	})
}
