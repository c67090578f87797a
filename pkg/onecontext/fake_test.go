package onecontext

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// storedObject is what the fake storage received for one PUT.
type storedObject struct {
	contentType string
	apiKey      string
	body        []byte
}

// fakeService stands in for both the OneContext API and the object store
// that presigned URLs point at.
type fakeService struct {
	t       *testing.T
	api     *httptest.Server
	storage *httptest.Server

	mu           sync.Mutex
	requests     map[string]map[string]any // last JSON body by "METHOD path"
	headers      http.Header
	presignCalls int
	commits      []CommitPayload
	uploads      map[string]storedObject
	chunks       []Chunk
	listPages    [][]FileInfo
	listCalls    int

	failUploads   map[string]int // file name → status returned by storage
	presignStatus int
	commitStatus  int
	shortPresign  bool
	uploadDelay   time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeService(t *testing.T) *fakeService {
	f := &fakeService{
		t:           t,
		requests:    make(map[string]map[string]any),
		uploads:     make(map[string]storedObject),
		failUploads: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v5/context", f.handleCreateContext)
	mux.HandleFunc("GET /api/v5/context", f.handleListContexts)
	mux.HandleFunc("DELETE /api/v5/context", f.handleMessage("context deleted"))
	mux.HandleFunc("POST /api/v5/context/chunk/search", f.handleChunks)
	mux.HandleFunc("POST /api/v5/context/chunk", f.handleChunks)
	mux.HandleFunc("POST /api/v5/context/file", f.handleListFiles)
	mux.HandleFunc("DELETE /api/v5/context/file", f.handleMessage("file deleted"))
	mux.HandleFunc("POST /api/v5/context/file/presigned-download-url", f.handleDownloadURL)
	mux.HandleFunc("POST /api/v5/context/file/presigned-upload-url", f.handlePresign)
	mux.HandleFunc("POST /api/v5/context/file/process-uploaded", f.handleCommit)
	mux.HandleFunc("POST /api/v5/user/updateUserMeta", f.handleMessage("user updated"))
	f.api = httptest.NewServer(f.recording(mux))
	t.Cleanup(f.api.Close)

	f.storage = httptest.NewServer(http.HandlerFunc(f.handleUpload))
	t.Cleanup(f.storage.Close)

	return f
}

func (f *fakeService) client(t *testing.T) *Client {
	c, err := NewClient(&Config{
		APIKey:    "test-key",
		OpenAIKey: "sk-test",
		BaseURL:   f.api.URL + "/api/v5",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return c
}

// request returns the last decoded body sent to method and path.
func (f *fakeService) request(method, path string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method+" "+path]
}

func (f *fakeService) recording(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			if len(data) > 0 {
				_ = json.Unmarshal(data, &body)
			}
			r.Body = io.NopCloser(bytes.NewReader(data))
		}
		f.mu.Lock()
		f.requests[r.Method+" "+r.URL.Path] = body
		f.headers = r.Header.Clone()
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *fakeService) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(f.t, json.NewEncoder(w).Encode(v))
}

func (f *fakeService) handleMessage(msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.writeJSON(w, http.StatusOK, map[string]string{"message": msg})
	}
}

func (f *fakeService) handleCreateContext(w http.ResponseWriter, r *http.Request) {
	name, _ := f.request(r.Method, r.URL.Path)["contextName"].(string)
	f.writeJSON(w, http.StatusOK, Context{ID: "ctx-1", Name: name})
}

func (f *fakeService) handleListContexts(w http.ResponseWriter, r *http.Request) {
	f.writeJSON(w, http.StatusOK, []Context{{ID: "ctx-1", Name: "docs"}})
}

// handleChunks serves both search and get: metadata filters are applied
// locally, then topK or limit caps the result.
func (f *fakeService) handleChunks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MetadataFilters         json.RawMessage          `json:"metadataFilters"`
		TopK                    *int                     `json:"topK"`
		Limit                   *int                     `json:"limit"`
		StructuredOutputRequest *StructuredOutputRequest `json:"structuredOutputRequest"`
	}
	data, _ := json.Marshal(f.request(r.Method, r.URL.Path))
	require.NoError(f.t, json.Unmarshal(data, &body))

	filter, err := ParseFilter(body.MetadataFilters)
	if err != nil {
		f.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	f.mu.Lock()
	var matched []Chunk
	for _, c := range f.chunks {
		if filter == nil || filter.Match(c.MetadataJSON) {
			matched = append(matched, c)
		}
	}
	f.mu.Unlock()

	limit := body.TopK
	if limit == nil {
		limit = body.Limit
	}
	if limit != nil && len(matched) > *limit {
		matched = matched[:*limit]
	}

	resp := ChunkOperationResponse{Chunks: matched}
	if body.StructuredOutputRequest != nil {
		resp.Output = json.RawMessage(`{"vendor":"Acme"}`)
	}
	f.writeJSON(w, http.StatusOK, resp)
}

// handleListFiles returns the configured pages in turn, repeating the last.
func (f *fakeService) handleListFiles(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	var page []FileInfo
	if len(f.listPages) > 0 {
		i := min(f.listCalls, len(f.listPages)-1)
		page = f.listPages[i]
	}
	f.listCalls++
	f.mu.Unlock()

	f.writeJSON(w, http.StatusOK, ListFilesResponse{Files: page})
}

func (f *fakeService) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	id, _ := f.request(r.Method, r.URL.Path)["fileId"].(string)
	f.writeJSON(w, http.StatusOK, map[string]string{"downloadUrl": f.storage.URL + "/download/" + id})
}

func (f *fakeService) handlePresign(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.presignCalls++
	status := f.presignStatus
	short := f.shortPresign
	f.mu.Unlock()

	if status != 0 {
		f.writeJSON(w, status, map[string]string{"error": "presign failed"})
		return
	}

	var payload PresignPayload
	data, _ := json.Marshal(f.request(r.Method, r.URL.Path))
	require.NoError(f.t, json.Unmarshal(data, &payload))

	targets := make([]UploadTarget, 0, len(payload.FileNames))
	for _, name := range payload.FileNames {
		targets = append(targets, UploadTarget{
			PresignedURL: f.storage.URL + "/upload/" + name + "?X-Goog-Signature=abc",
			ExpiresAt:    time.Now().Add(time.Hour).Format(time.RFC3339),
			FileID:       uuid.NewString(),
			GCSURI:       "gs://bucket/" + payload.ContextName + "/" + name,
		})
	}
	if short && len(targets) > 0 {
		targets = targets[:len(targets)-1]
	}
	f.writeJSON(w, http.StatusOK, targets)
}

func (f *fakeService) handleCommit(w http.ResponseWriter, r *http.Request) {
	var payload CommitPayload
	data, _ := json.Marshal(f.request(r.Method, r.URL.Path))
	require.NoError(f.t, json.Unmarshal(data, &payload))

	f.mu.Lock()
	f.commits = append(f.commits, payload)
	status := f.commitStatus
	f.mu.Unlock()

	if status != 0 {
		f.writeJSON(w, status, map[string]string{"error": "commit failed"})
		return
	}
	f.writeJSON(w, http.StatusOK, map[string]string{"message": "processing"})
}

func (f *fakeService) handleUpload(w http.ResponseWriter, r *http.Request) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.uploadDelay > 0 {
		time.Sleep(f.uploadDelay)
	}

	name := filepath.Base(r.URL.Path)
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	status, fail := f.failUploads[name]
	if !fail {
		f.uploads[name] = storedObject{
			contentType: r.Header.Get("Content-Type"),
			apiKey:      r.Header.Get("API-KEY"),
			body:        body,
		}
	}
	f.mu.Unlock()

	if fail {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, "<Error>AccessDenied</Error>")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// writeFiles creates files under a temp dir and returns their paths in order.
func writeFiles(t *testing.T, contents map[string]string, order ...string) []File {
	dir := t.TempDir()
	out := make([]File, 0, len(order))
	for _, name := range order {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents[name]), 0o644))
		out = append(out, File{Path: path})
	}
	return out
}
