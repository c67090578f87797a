// Package transport issues JSON requests against the OneContext REST API.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// DefaultBaseURL is the production API root. Endpoints are resolved against it.
const DefaultBaseURL = "https://app.onecontext.ai/api/v5/"

// Connector sends requests to a fixed base URL through a configured HTTP client.
type Connector struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewConnector parses baseURL and builds an HTTP client from opts.
// A trailing slash is added so relative endpoints resolve beneath the base path.
func NewConnector(baseURL string, opts ...Option) (*Connector, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("base url %q is not absolute", baseURL)
	}
	if u.Path == "" || u.Path[len(u.Path)-1] != '/' {
		u.Path += "/"
	}

	return &Connector{
		baseURL:    u,
		httpClient: NewHTTPClient(opts...),
	}, nil
}

// BaseURL returns the resolved API root.
func (c *Connector) BaseURL() string {
	return c.baseURL.String()
}

// Do sends body as JSON to endpoint and decodes a 2xx response into respBody.
// The response body is always read to the end so the connection can be reused.
func (c *Connector) Do(ctx context.Context, method, endpoint string, reqBody, respBody any) error {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	target := c.baseURL.ResolveReference(ref)

	var bodyReader io.Reader
	if reqBody != nil {
		payload, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(bodyBytes),
		}
	}

	if respBody != nil && len(bytes.TrimSpace(bodyBytes)) > 0 {
		if err := json.Unmarshal(bodyBytes, respBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// Request is the typed form of Do: it returns the decoded response as T.
// An empty success body yields the zero T.
func Request[T any](ctx context.Context, c *Connector, method, endpoint string, body any) (T, error) {
	var out T
	if err := c.Do(ctx, method, endpoint, body, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
