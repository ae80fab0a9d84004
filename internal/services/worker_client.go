package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"rag-console/internal/models"
)

// StageWorkerClient hands jobs to the external stage workers
type StageWorkerClient interface {
	Dispatch(ctx context.Context, req *DispatchRequest) (*DispatchResponse, error)
	HealthCheck(ctx context.Context) (bool, error)
}

// WorkerClientConfig configures the outbound worker client
type WorkerClientConfig struct {
	BaseURL string
	// CallbackBase is the public base URL workers use to reach this service
	CallbackBase string
	CallbackPath string
	Timeout      time.Duration
	Retries      int
	// Backoff is multiplied by attempt² between retries
	Backoff time.Duration
}

// WorkerClient dispatches stage jobs over HTTP with retries
type WorkerClient struct {
	baseURL      string
	callbackBase string
	callbackPath string
	httpClient   *http.Client
	retries      int
	backoff      time.Duration
}

// DispatchRequest is sent to <base_url>/stages/<stage>
type DispatchRequest struct {
	TaskID      string                 `json:"task_id"`
	JobID       string                 `json:"job_id"`
	DocumentID  string                 `json:"document_id"`
	Stage       models.Stage           `json:"stage"`
	Priority    int                    `json:"priority"`
	InputRef    string                 `json:"input_ref,omitempty"`
	CallbackURL string                 `json:"callback_url"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// DispatchResponse is the worker's acknowledgement
type DispatchResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// NewWorkerClient creates a worker client with otel-instrumented transport
func NewWorkerClient(cfg WorkerClientConfig) *WorkerClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = time.Second
	}
	if cfg.CallbackPath == "" {
		cfg.CallbackPath = "/api/v1/webhooks/worker"
	}
	return &WorkerClient{
		baseURL:      cfg.BaseURL,
		callbackBase: cfg.CallbackBase,
		callbackPath: cfg.CallbackPath,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: otelhttp.NewTransport(&http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			}),
		},
		retries: cfg.Retries,
		backoff: cfg.Backoff,
	}
}

// CallbackURL builds the absolute webhook URL handed to workers
func (c *WorkerClient) CallbackURL() string {
	base := c.callbackBase
	if base == "" {
		base = "http://localhost:8080"
	}
	if u, err := url.JoinPath(base, c.callbackPath); err == nil {
		return u
	}
	return base + c.callbackPath
}

// Dispatch posts a job to the worker responsible for its stage
func (c *WorkerClient) Dispatch(ctx context.Context, req *DispatchRequest) (*DispatchResponse, error) {
	if req.CallbackURL == "" {
		req.CallbackURL = c.CallbackURL()
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/stages/"+string(req.Stage), req)
	if err != nil {
		return nil, fmt.Errorf("dispatch %s for job %s: %w", req.Stage, req.JobID, err)
	}

	var result DispatchResponse
	if err := parseResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("dispatch %s for job %s: %w", req.Stage, req.JobID, err)
	}
	if result.TaskID == "" {
		result.TaskID = req.TaskID
	}
	return &result, nil
}

// HealthCheck reports whether the worker gateway answers /health
func (c *WorkerClient) HealthCheck(ctx context.Context) (bool, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return false, fmt.Errorf("health check request failed: %w", err)
	}

	var result map[string]interface{}
	if err := parseResponse(resp, &result); err != nil {
		return false, err
	}

	status, ok := result["status"].(string)
	return ok && (status == "healthy" || status == "ok"), nil
}

// doRequest performs an HTTP request with retry logic
func (c *WorkerClient) doRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := time.Duration(attempt*attempt) * c.backoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.makeRequest(ctx, method, endpoint, body)
		if err == nil && resp.StatusCode < 500 {
			// Success or client error (don't retry 4xx)
			return resp, nil
		}

		lastErr = err
		if resp != nil {
			if lastErr == nil {
				lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			}
			resp.Body.Close()
		}
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.retries, lastErr)
}

// makeRequest creates and executes an HTTP request
func (c *WorkerClient) makeRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

// parseResponse reads and parses JSON response
func parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
