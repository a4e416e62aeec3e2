// Package census provides the two Census REST calls the runner needs:
// triggering a sync and reading a sync run.
package census

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the public Census API root
	DefaultBaseURL = "https://app.getcensus.com/api/v1"

	// DefaultTimeout bounds a single API request
	DefaultTimeout = 30 * time.Second

	// maxBodySize caps how much of a response body is read into memory
	maxBodySize = 8 << 20
)

// Client talks to the Census API with a bearer access token
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a client for baseURL that authenticates every request with accessToken
func NewClient(ctx context.Context, baseURL, accessToken string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = DefaultTimeout
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the API root the client sends requests to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StartSync triggers a new run of the sync.
// See https://docs.getcensus.com/basics/api/syncs#post-syncs-id-trigger
func (c *Client) StartSync(ctx context.Context, syncID string) (*Response, error) {
	ref := JobReference{BaseURL: c.baseURL, SyncID: syncID}
	return c.do(ctx, http.MethodPost, ref.TriggerURL())
}

// GetSyncRun reads the current state of a sync run.
// See https://docs.getcensus.com/basics/api/sync-runs#get-sync_runs-id
func (c *Client) GetSyncRun(ctx context.Context, runID string) (*Response, error) {
	ref := JobReference{BaseURL: c.baseURL}
	return c.do(ctx, http.MethodGet, ref.RunURL(runID))
}

// do performs the request. Only transport failures are returned as errors,
// any HTTP status is handed back to the caller together with the body.
func (c *Client) do(ctx context.Context, method, endpoint string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response of %s %s: %w", method, endpoint, err)
	}

	logrus.WithFields(logrus.Fields{
		"method": method,
		"url":    endpoint,
		"status": resp.StatusCode,
		"bytes":  len(body),
	}).Debug("Census API call finished")

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
