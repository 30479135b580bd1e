package poll

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// HTTPJobClient talks to an Airbyte-style job API:
//
//	POST {base}/api/v1/jobs          {"connectionId": ..., "jobType": ...}
//	GET  {base}/api/v1/jobs/{jobId}  -> {"status": "succeeded" | ...}
type HTTPJobClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPJobClient creates a client for the given API base URL
func NewHTTPJobClient(baseURL string, httpClient *http.Client) *HTTPJobClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPJobClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Submit triggers a new job and returns its handle
func (c *HTTPJobClient) Submit(ctx context.Context, spec JobSpec) (JobHandle, error) {
	payload, err := json.Marshal(spec)
	if err != nil {
		return JobHandle{}, &SubmissionError{Reason: "encoding job spec", Err: err}
	}

	url := c.baseURL + "/api/v1/jobs"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return JobHandle{}, &SubmissionError{Reason: "building request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return JobHandle{}, &SubmissionError{Reason: "remote system unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return JobHandle{}, &SubmissionError{
			Reason: fmt.Sprintf("remote system rejected job with status %d", resp.StatusCode),
		}
	}

	var body struct {
		JobID interface{} `json:"jobId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return JobHandle{}, &SubmissionError{Reason: "decoding response", Err: err}
	}
	if body.JobID == nil {
		return JobHandle{}, &SubmissionError{Reason: "response contained no jobId"}
	}

	return JobHandle{ID: jobIDString(body.JobID)}, nil
}

// Status fetches the current state of a submitted job. An unrecognized
// status string maps to JobUnknown rather than an error; only transport
// failures and non-2xx responses are QueryErrors.
func (c *HTTPJobClient) Status(ctx context.Context, handle JobHandle) (StatusReport, error) {
	url := fmt.Sprintf("%s/api/v1/jobs/%s", c.baseURL, handle.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return StatusReport{}, &QueryError{JobID: handle.ID, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return StatusReport{}, &QueryError{JobID: handle.ID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return StatusReport{}, &QueryError{
			JobID: handle.ID,
			Err:   fmt.Errorf("unexpected response status %d", resp.StatusCode),
		}
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return StatusReport{}, &QueryError{JobID: handle.ID, Err: err}
	}

	raw, _ := body["status"].(string)
	return StatusReport{
		Status: mapJobStatus(raw),
		Result: body,
		Raw:    raw,
	}, nil
}

func mapJobStatus(raw string) JobStatus {
	switch strings.ToLower(raw) {
	case "pending":
		return JobPending
	case "running":
		return JobRunning
	case "succeeded":
		return JobSucceeded
	case "failed":
		return JobFailed
	default:
		return JobUnknown
	}
}

func jobIDString(id interface{}) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; job ids are integral
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}
