// internal/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dealdesk/jobsync/pkg/schema"
)

// Client talks to the backend analysis-job API.
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// RequestError means the backend rejected the call (e.g. a deal not eligible
// for analysis). It is not retried.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("backend rejected request: status %d: %s", e.StatusCode, e.Body)
}

// TransportError means the backend could not be reached or the response could
// not be read. It says nothing about the job itself.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StartAnalysis asks the backend to queue an analysis job for the deal.
func (c *Client) StartAnalysis(ctx context.Context, scopeID string) (schema.StartJobResponse, error) {
	var out schema.StartJobResponse
	body, err := json.Marshal(schema.StartJobRequest{ScopeID: scopeID})
	if err != nil {
		return out, fmt.Errorf("marshal start request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("build start request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.doJSON(req, "start analysis", &out); err != nil {
		return schema.StartJobResponse{}, err
	}
	return out, nil
}

// GetJob fetches the current status of a job by id. The returned update is
// stamped with the job id so it can be merged like a push update.
func (c *Client) GetJob(ctx context.Context, jobID string) (schema.JobUpdated, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return schema.JobUpdated{}, fmt.Errorf("build status request: %w", err)
	}
	var out schema.JobStatusResponse
	if err := c.doJSON(req, "fetch job status", &out); err != nil {
		return schema.JobUpdated{}, err
	}
	return schema.JobUpdated{
		JobID:       jobID,
		Status:      out.Status,
		ProgressPct: out.ProgressPct,
		Message:     out.Message,
		UpdatedAt:   out.UpdatedAt,
	}, nil
}

func (c *Client) doJSON(req *http.Request, op string, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &RequestError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(errBody))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op + ": decode response", Err: err}
	}
	return nil
}
