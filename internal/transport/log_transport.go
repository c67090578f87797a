package transport

import (
	"log/slog"
	"net/http"
	"time"
)

type logTransport struct {
	logger    *slog.Logger
	transport http.RoundTripper
}

func (t *logTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.transport.RoundTrip(req)

	// Query strings are dropped: presigned URLs carry their signature there.
	attrs := []any{
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
		"duration", time.Since(start),
	}
	if err != nil {
		t.logger.DebugContext(req.Context(), "HTTP request failed", append(attrs, "error", err)...)
		return nil, err
	}
	t.logger.DebugContext(req.Context(), "HTTP request", append(attrs, "status", resp.StatusCode)...)
	return resp, nil
}
