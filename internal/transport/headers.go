package transport

import "net/http"

// Header names understood by the OneContext API.
const (
	HeaderAPIKey       = "API-KEY"
	HeaderOpenAIAPIKey = "OPENAI-API-KEY"
)

type apiKeyTransport struct {
	apiKey    string
	openAIKey string
	transport http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqCopy := req.Clone(req.Context())

	reqCopy.Header.Set(HeaderAPIKey, t.apiKey)
	// Always present; empty when no model-provider key is configured.
	reqCopy.Header.Set(HeaderOpenAIAPIKey, t.openAIKey)

	return t.transport.RoundTrip(reqCopy)
}
