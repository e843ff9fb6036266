// Package tradesim provides the wire types and a Go client for the
// tradesim-server HTTP API.
package tradesim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tradesim/internal/util"
)

// Client calls the tradesim-server REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// retryAttempts bounds retries of idempotent GET requests.
	retryAttempts int
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://127.0.0.1:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		retryAttempts: 3,
	}
}

// RunBacktest submits a backtest request and returns the server's response.
// The request is not retried: whether to re-run a backtest is the caller's
// decision.
func (c *Client) RunBacktest(ctx context.Context, req BacktestRequest) (*BacktestResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/backtest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var resp BacktestResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListResults retrieves persisted run summaries, newest first. An empty
// symbol lists runs for all symbols; limit <= 0 uses the server default.
func (c *Client) ListResults(ctx context.Context, symbol string, limit int) ([]RunSummary, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u := c.baseURL + "/api/v1/results"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var runs []RunSummary
	err := util.Retry(ctx, c.retryAttempts, 200*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		return c.do(req, &runs)
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Health reports whether the server is up.
func (c *Client) Health(ctx context.Context) error {
	var resp HealthResponse
	err := util.Retry(ctx, c.retryAttempts, 200*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
		if err != nil {
			return err
		}
		return c.do(req, &resp)
	})
	if err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("unexpected health status %q", resp.Status)
	}
	return nil
}

// do executes the request and decodes a JSON response into out. Non-2xx
// responses are decoded as the API's error shape.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", req.Method, req.URL.Path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	if out == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
