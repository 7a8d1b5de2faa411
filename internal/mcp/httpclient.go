package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meltforce/trainergpt/internal/tools"
)

// HTTPClient implements Executor by calling the TrainerGPT REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	user       string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies Executor.
var _ Executor = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. user is
// sent as X-User when the server is not behind tailnet identity; it may be
// empty.
func NewHTTPClient(baseURL, apiKey, user string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		user:       user,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) post(ctx context.Context, path string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.user != "" {
		req.Header.Set("X-User", c.user)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("httpclient: read body: %w", err)
	}
	return resp.StatusCode, b, nil
}

// Call runs one tool on the remote server. Transport and server errors come
// back as failed results, like any other tool failure.
func (c *HTTPClient) Call(ctx context.Context, name string, args json.RawMessage) tools.Result {
	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage(`{}`)
	}

	status, body, err := c.post(ctx, "/api/v1/tools/"+url.PathEscape(name), args)
	if err != nil {
		return tools.Failed(fmt.Sprintf("%s failed: %v", name, err))
	}

	var envelope struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(body, &envelope)

	switch {
	case status != http.StatusOK && envelope.Error != "":
		return tools.Failed(envelope.Error)
	case status != http.StatusOK:
		return tools.Failed(fmt.Sprintf("%s failed: server returned %d", name, status))
	case envelope.Success != nil && !*envelope.Success && envelope.Error != "":
		return tools.Failed(envelope.Error)
	case !json.Valid(body):
		return tools.Failed(fmt.Sprintf("%s failed: invalid response", name))
	}
	return tools.Result{Value: json.RawMessage(body)}
}
