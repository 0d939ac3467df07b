package scanservice

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
)

// Client talks to the remote scan service over HTTP+JSON.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authToken  string
}

func New(baseURL string) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: 30 * time.Second})
}

// NewWithHTTPClient creates a client with a caller-supplied http.Client
// (used by tests and by callers that need custom transports).
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

// SetAuthToken attaches a bearer token to every request.
func (c *Client) SetAuthToken(token string) {
	if c == nil {
		return
	}
	c.authToken = strings.TrimSpace(token)
}

// CreateUploadURL requests a write destination for an artifact with the
// given base64 MD5 checksum. One outbound request, no retry.
func (c *Client) CreateUploadURL(ctx context.Context, checksumMD5 string, kind ArtifactKind) (*UploadDestination, error) {
	checksumMD5 = strings.TrimSpace(checksumMD5)
	if checksumMD5 == "" {
		return nil, fmt.Errorf("content checksum is required")
	}
	var out UploadDestination
	err := c.doJSON(ctx, http.MethodPost, "/uploads", createUploadRequest{
		ContentMD5:   checksumMD5,
		ArtifactKind: kind,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("create upload url: %w", err)
	}
	if strings.TrimSpace(out.UploadID) == "" || strings.TrimSpace(out.URL) == "" {
		return nil, fmt.Errorf("create upload url: service returned an incomplete destination")
	}
	return &out, nil
}

// CreateScan creates an analysis job referencing already uploaded artifacts.
// The client token makes the request idempotent on the service side.
func (c *Client) CreateScan(ctx context.Context, artifacts map[ArtifactKind]string, language, clientToken string) (*ScanJob, error) {
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("at least one artifact reference is required")
	}
	var out ScanJob
	err := c.doJSON(ctx, http.MethodPost, "/scans", createScanRequest{
		ArtifactMap: artifacts,
		Language:    strings.TrimSpace(language),
		ClientToken: strings.TrimSpace(clientToken),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("create scan: %w", err)
	}
	if strings.TrimSpace(out.JobID) == "" {
		return nil, fmt.Errorf("create scan: service returned an empty job id")
	}
	return &out, nil
}

// GetScanStatus queries the current status of a job.
func (c *Client) GetScanStatus(ctx context.Context, jobID string) (JobStatus, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return "", fmt.Errorf("job id is required")
	}
	var out getScanResponse
	if err := c.doJSON(ctx, http.MethodGet, "/scans/"+url.PathEscape(jobID), nil, &out); err != nil {
		return "", fmt.Errorf("get scan status: %w", err)
	}
	return out.Status, nil
}

// ListFindings fetches one findings page. Depending on the schema version
// the service puts the list under "codeScanFindings" or
// "codeAnalysisFindings"; both names are supported permanently and the
// field actually present wins.
func (c *Client) ListFindings(ctx context.Context, jobID, schema, nextToken string) (*FindingsPage, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, fmt.Errorf("job id is required")
	}
	q := url.Values{}
	if s := strings.TrimSpace(schema); s != "" {
		q.Set("schema", s)
	}
	if t := strings.TrimSpace(nextToken); t != "" {
		q.Set("nextToken", t)
	}
	path := "/scans/" + url.PathEscape(jobID) + "/findings"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var body struct {
		CodeScanFindings     json.RawMessage `json:"codeScanFindings"`
		CodeAnalysisFindings json.RawMessage `json:"codeAnalysisFindings"`
		NextToken            string          `json:"nextToken"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, fmt.Errorf("list findings: %w", err)
	}

	raw := body.CodeScanFindings
	if !jsonFieldPresent(raw) {
		raw = body.CodeAnalysisFindings
	}
	page := &FindingsPage{NextToken: strings.TrimSpace(body.NextToken)}
	if jsonFieldPresent(raw) {
		if err := json.Unmarshal(raw, &page.Findings); err != nil {
			return nil, fmt.Errorf("list findings: decode findings array: %w", err)
		}
	}
	return page, nil
}

func jsonFieldPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("scan service endpoint is not configured")
	}
	var reqBody io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newServiceError(resp.StatusCode, payload)
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
