package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"replyify-site/internal/infra/metrics"
)

const maxResponseBytes = 1 << 20

// Client speaks the managed backend's HTTP function API:
// POST {base}/api/query and POST {base}/api/mutation.
type Client struct {
	baseURL    string
	httpClient *http.Client
	recorder   metrics.Recorder
}

type rpcRequest struct {
	Path   string `json:"path"`
	Args   any    `json:"args"`
	Format string `json:"format"`
}

type rpcResponse struct {
	Status       string          `json:"status"`
	Value        json.RawMessage `json:"value"`
	ErrorMessage string          `json:"errorMessage"`
}

// RemoteError is a call the backend rejected or could not answer.
type RemoteError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("backend %s failed (status %d): %s", e.Path, e.StatusCode, e.Message)
}

func NewClient(baseURL string, httpClient *http.Client, recorder metrics.Recorder) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		recorder:   recorder,
	}
}

// BaseURL is the deployment this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Query runs a read-only backend function and returns its raw value.
func (c *Client) Query(ctx context.Context, path string, args any) (json.RawMessage, error) {
	return c.call(ctx, "query", path, args)
}

// Mutation runs a writing backend function and returns its raw value.
func (c *Client) Mutation(ctx context.Context, path string, args any) (json.RawMessage, error) {
	return c.call(ctx, "mutation", path, args)
}

func (c *Client) call(ctx context.Context, kind, path string, args any) (json.RawMessage, error) {
	start := time.Now()
	value, err := c.do(ctx, kind, path, args)

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeUpstreamFail
	}
	c.recorder.RecordBackendCall(path, outcome, time.Since(start))

	return value, err
}

func (c *Client) do(ctx context.Context, kind, path string, args any) (json.RawMessage, error) {
	payload, err := json.Marshal(rpcRequest{Path: path, Args: args, Format: "json"})
	if err != nil {
		return nil, fmt.Errorf("encode %s args: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/"+kind, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	var parsed rpcResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := parsed.ErrorMessage
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &RemoteError{Path: path, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode %s response: %w", path, decodeErr)
	}
	if parsed.Status != "success" {
		msg := parsed.ErrorMessage
		if msg == "" {
			msg = "unexpected status " + parsed.Status
		}
		return nil, &RemoteError{Path: path, StatusCode: resp.StatusCode, Message: msg}
	}

	return parsed.Value, nil
}
