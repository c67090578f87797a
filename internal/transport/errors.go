package transport

import "fmt"

// HTTPError is a non-2xx response. Body holds the full response text.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d, body: %s", e.StatusCode, e.Body)
}

// NetworkError is a failure below HTTP: DNS, connect, TLS, timeout.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
