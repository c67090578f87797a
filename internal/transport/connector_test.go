package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echo struct {
	Name string `json:"name"`
}

func TestRequest_AttachesKeysAndDecodes(t *testing.T) {
	var gotHeaders http.Header
	var gotPath, gotMethod string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotPath = r.URL.Path
		gotMethod = r.Method
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"docs"}`)
	}))
	defer srv.Close()

	c, err := NewConnector(srv.URL+"/api/v5", WithAPIKeys("key-123", ""))
	require.NoError(t, err)

	out, err := Request[echo](context.Background(), c, http.MethodPost, "context", map[string]string{"contextName": "docs"})
	require.NoError(t, err)

	assert.Equal(t, "docs", out.Name)
	assert.Equal(t, "/api/v5/context", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "key-123", gotHeaders.Get(HeaderAPIKey))
	assert.Contains(t, gotHeaders, http.CanonicalHeaderKey(HeaderOpenAIAPIKey))
	assert.Equal(t, "", gotHeaders.Get(HeaderOpenAIAPIKey))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "docs", gotBody["contextName"])
}

func TestRequest_NestedEndpoint(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c, err := NewConnector(srv.URL + "/api/v5/")
	require.NoError(t, err)

	_, err = Request[map[string]any](context.Background(), c, http.MethodPost, "context/file/presigned-upload-url", nil)
	require.NoError(t, err)
	assert.Equal(t, "/api/v5/context/file/presigned-upload-url", gotPath)
}

func TestRequest_HTTPErrorCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":"context not found"}`)
	}))
	defer srv.Close()

	c, err := NewConnector(srv.URL)
	require.NoError(t, err)

	_, err = Request[map[string]any](context.Background(), c, http.MethodGet, "context", nil)
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.StatusCode)
	assert.Equal(t, `{"detail":"context not found"}`, httpErr.Body)
}

func TestRequest_EmptyBodyYieldsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewConnector(srv.URL)
	require.NoError(t, err)

	out, err := Request[map[string]any](context.Background(), c, http.MethodDelete, "context", nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestRequest_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewConnector(url)
	require.NoError(t, err)

	_, err = Request[map[string]any](context.Background(), c, http.MethodGet, "context", nil)
	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))
}

func TestNewConnector_RejectsRelativeBase(t *testing.T) {
	_, err := NewConnector("api/v5/")
	assert.Error(t, err)
}

func TestNewConnector_DefaultBase(t *testing.T) {
	c, err := NewConnector("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
}
