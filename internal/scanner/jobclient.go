package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Job states reported by the scraping service.
const (
	JobStateRunning   = "RUNNING"
	JobStateSucceeded = "SUCCEEDED"
	JobStateFailed    = "FAILED"
	JobStateAborted   = "ABORTED"
)

// JobStatus is one poll of a submitted scraping job.
type JobStatus struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	ResultSetID string `json:"resultSetId,omitempty"`
}

// JobClient is the scraping job service boundary: submit a query, poll the
// job, fetch the result items.
type JobClient interface {
	Submit(ctx context.Context, query string, limit int, excludeReplies bool) (string, error)
	Status(ctx context.Context, jobID string) (*JobStatus, error)
	Results(ctx context.Context, jobID, resultSetID string) ([]RawItem, error)
}

// HTTPJobClient implements JobClient against the service's JSON API.
type HTTPJobClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewHTTPJobClient(baseURL, token string) *HTTPJobClient {
	return &HTTPJobClient{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type submitJobRequest struct {
	Query          string `json:"query"`
	Limit          int    `json:"limit"`
	ExcludeReplies bool   `json:"excludeReplies"`
}

func (c *HTTPJobClient) Submit(ctx context.Context, query string, limit int, excludeReplies bool) (string, error) {
	body, _ := json.Marshal(submitJobRequest{Query: query, Limit: limit, ExcludeReplies: excludeReplies})

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/jobs", body, &resp); err != nil {
		return "", fmt.Errorf("submit job: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("submit job: no job id in response")
	}
	return resp.ID, nil
}

func (c *HTTPJobClient) Status(ctx context.Context, jobID string) (*JobStatus, error) {
	var status JobStatus
	if err := c.do(ctx, http.MethodGet, "/v1/jobs/"+jobID, nil, &status); err != nil {
		return nil, fmt.Errorf("job status: %w", err)
	}
	return &status, nil
}

// Results fetches items via the job's result-set handle, falling back to
// the job-scoped results endpoint when the handle is missing or stale.
func (c *HTTPJobClient) Results(ctx context.Context, jobID, resultSetID string) ([]RawItem, error) {
	var items []RawItem

	if resultSetID != "" {
		if err := c.do(ctx, http.MethodGet, "/v1/resultsets/"+resultSetID+"/items", nil, &items); err == nil {
			return items, nil
		}
	}

	if err := c.do(ctx, http.MethodGet, "/v1/jobs/"+jobID+"/results", nil, &items); err != nil {
		return nil, fmt.Errorf("fetch results: %w", err)
	}
	return items, nil
}

func (c *HTTPJobClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
