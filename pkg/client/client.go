// Package client provides a Go SDK for the Workforce HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rahlplx/workforce/pkg/models"
)

// Client calls the Workforce HTTP API. It is safe for concurrent use.
type Client struct {
	BaseURL    string       // e.g. "http://localhost:7430"
	APIKey     string       // optional; set for X-API-Key
	HTTPClient *http.Client // optional; nil uses http.DefaultClient
}

// New returns a client for the given base URL. APIKey is optional; when set,
// requests carry the X-API-Key header.
func New(baseURL, apiKey string) *Client {
	return &Client{BaseURL: baseURL, APIKey: apiKey}
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
	return c.client().Do(req)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, e.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Health reports whether the server answers /health.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/health", nil, nil)
}

// Dispatch submits one instruction to the decision loop.
func (c *Client) Dispatch(ctx context.Context, req models.DispatchRequest) (*models.DispatchResponse, error) {
	var out models.DispatchResponse
	if err := c.doJSON(ctx, http.MethodPost, "/dispatch", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analyze assesses an instruction's risk without dispatching it.
func (c *Client) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.RiskProfile, error) {
	var out models.RiskProfile
	if err := c.doJSON(ctx, http.MethodPost, "/analyze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate runs one guardrail level against the given input.
func (c *Client) Validate(ctx context.Context, req models.ValidateRequest) (*models.GuardrailResult, error) {
	var out models.GuardrailResult
	if err := c.doJSON(ctx, http.MethodPost, "/validate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Route resolves an intent to workers without dispatching.
func (c *Client) Route(ctx context.Context, intent models.Intent) (*models.RouteResponse, error) {
	var out models.RouteResponse
	if err := c.doJSON(ctx, http.MethodPost, "/route", models.RouteRequest{Intent: intent}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GraphSummary fetches the loaded graph's summary and node listings.
func (c *Client) GraphSummary(ctx context.Context) (*models.GraphSummary, error) {
	var out struct {
		Summary models.GraphSummary `json:"summary"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/graph", nil, &out); err != nil {
		return nil, err
	}
	return &out.Summary, nil
}

// FindWorkers searches the graph for workers by domain or capability keyword.
// Exactly one of domain or capability should be non-empty.
func (c *Client) FindWorkers(ctx context.Context, domain, capability string) ([]models.Worker, error) {
	q := url.Values{}
	if domain != "" {
		q.Set("domain", domain)
	}
	if capability != "" {
		q.Set("capability", capability)
	}
	var out []models.Worker
	if err := c.doJSON(ctx, http.MethodGet, "/graph/find?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Hierarchy walks reports_to edges upward from a node, starting at the node
// itself.
func (c *Client) Hierarchy(ctx context.Context, nodeID string) ([]models.HierarchyNode, error) {
	var out []models.HierarchyNode
	if err := c.doJSON(ctx, http.MethodGet, "/graph/hierarchy/"+url.PathEscape(nodeID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReloadGraph reloads the graph from disk and returns the new summary.
func (c *Client) ReloadGraph(ctx context.Context) (*models.GraphSummary, error) {
	var out models.GraphSummary
	if err := c.doJSON(ctx, http.MethodPost, "/graph/reload", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCheckpoints returns recorded checkpoints, newest first.
func (c *Client) ListCheckpoints(ctx context.Context, limit int) ([]models.Checkpoint, error) {
	path := "/checkpoints"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []models.Checkpoint
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCheckpoint returns one checkpoint by id.
func (c *Client) GetCheckpoint(ctx context.Context, id string) (*models.Checkpoint, error) {
	var out models.Checkpoint
	if err := c.doJSON(ctx, http.MethodGet, "/checkpoints/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Journal returns the markdown decision journal. limitBytes > 0 caps the
// response to that many bytes from the journal's tail.
func (c *Client) Journal(ctx context.Context, limitBytes int) (string, error) {
	path := "/journal"
	if limitBytes > 0 {
		path += "?limit=" + strconv.Itoa(limitBytes)
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ListDecisions returns recorded decisions, newest first.
func (c *Client) ListDecisions(ctx context.Context, limit int) ([]models.Decision, error) {
	path := "/decisions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []models.Decision
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
