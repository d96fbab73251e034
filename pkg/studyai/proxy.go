package studyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProxyPath is the backend route that performs generation on the caller's
// behalf.
const ProxyPath = "/api/ai/generate"

// ProxyNotConfigured is the 400 message the proxy answers with when it
// holds no key of its own. Clients map it to ErrNoCredentials.
const ProxyNotConfigured = "AI service is not configured on the server."

// ProxyResponse is the success body of the proxy endpoint.
type ProxyResponse struct {
	Text string `json:"text"`
}

// ProxyTransport sends requests to the StudyBuddy backend, which attaches
// its own key.
type ProxyTransport struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewProxyTransport(baseURL string) *ProxyTransport {
	return &ProxyTransport{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Generate implements Transport.
func (t *ProxyTransport) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("studyai: encode proxy request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+ProxyPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := t.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Message: "proxy unreachable", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", &ProviderError{StatusCode: resp.StatusCode, Message: "read proxy response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &msg) != nil || msg.Message == "" {
			msg.Message = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusBadRequest && msg.Message == ProxyNotConfigured {
			return "", fmt.Errorf("%w: backend proxy has no key", ErrNoCredentials)
		}
		return "", &ProviderError{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	var out ProxyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &ProviderError{StatusCode: resp.StatusCode, Message: "malformed proxy response", Err: err}
	}
	return out.Text, nil
}
