// Package client provides an HTTP client for the run-tracking server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the run-tracking server
	// (e.g. "http://localhost:8080").
	BaseURL string

	// APIKey authenticates requests. Optional for unauthenticated servers.
	APIKey string

	// Entity is the account/namespace runs are created under. Optional.
	Entity string

	// HTTPClient is an optional custom HTTP client. If nil, a default
	// client with Timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 30 seconds.
	Timeout time.Duration
}

// Client is an HTTP client for the run-tracking API.
// All methods are safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	entity  string
	client  *http.Client
}

// New creates a Client from the given configuration.
// Returns an error if BaseURL is empty.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		entity:  cfg.Entity,
		client:  httpClient,
	}, nil
}

// CreateRun creates a new run and returns the server-assigned handle.
// If the request carries no entity, the client's configured entity is used.
func (c *Client) CreateRun(ctx context.Context, req CreateRunRequest) (*Run, error) {
	if req.Entity == "" {
		req.Entity = c.entity
	}
	var run Run
	if err := c.post(ctx, "/api/v1/runs", req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ResumeRun reopens an existing run under the "must" policy: the server
// fails (and so does this call) rather than creating a new run when the id
// cannot be located. Use IsNotFound to distinguish that case from transport
// failures.
func (c *Client) ResumeRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	if err := c.post(ctx, "/api/v1/runs/"+id+"/resume", resumeRunRequest{Policy: "must"}, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRun retrieves the current state of a run.
func (c *Client) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	if err := c.get(ctx, "/api/v1/runs/"+id, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// LogMetrics records a batch of metric values on an open run.
func (c *Client) LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error {
	return c.post(ctx, "/api/v1/runs/"+runID+"/metrics", logMetricsRequest{Metrics: metrics}, nil)
}

// SetSummary replaces the run's summary mapping.
func (c *Client) SetSummary(ctx context.Context, runID string, summary map[string]any) error {
	return c.post(ctx, "/api/v1/runs/"+runID+"/summary", setSummaryRequest{Summary: summary}, nil)
}

// FinishRun transitions a run to finished. Finishing an already-finished
// run is a no-op: the server answers 409 and this call returns nil.
func (c *Client) FinishRun(ctx context.Context, runID string) error {
	err := c.post(ctx, "/api/v1/runs/"+runID+"/finish", nil, nil)
	if IsConflict(err) {
		return nil
	}
	return err
}

// AttachArtifact uploads the given files as one named artifact bundle on
// the run. The files are streamed in a single multipart request; an empty
// file list still creates the (empty) bundle.
func (c *Client) AttachArtifact(ctx context.Context, runID, name, kind string, files []string) error {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if err := w.WriteField("name", name); err != nil {
		return fmt.Errorf("write artifact name: %w", err)
	}
	if err := w.WriteField("type", kind); err != nil {
		return fmt.Errorf("write artifact type: %w", err)
	}

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open artifact file: %w", err)
		}
		part, err := w.CreateFormFile("files", filepath.Base(path))
		if err != nil {
			f.Close()
			return fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(part, f); err != nil {
			f.Close()
			return fmt.Errorf("copy artifact file: %w", err)
		}
		f.Close()
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/runs/"+runID+"/artifacts", body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.do(req, nil)
}

// post sends a JSON POST request and decodes the response into result.
// A nil payload sends an empty body; a nil result discards the response.
func (c *Client) post(ctx context.Context, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

// get sends a GET request and decodes the response into result.
func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, result)
}

// errorResponse is the server's error envelope.
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do executes the request with auth and tracing headers, maps non-2xx
// responses to *Error, and decodes a successful body into result.
func (c *Client) do(req *http.Request, result any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var envelope errorResponse
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error.Message != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		} else {
			apiErr.Code = http.StatusText(resp.StatusCode)
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
