package statushandler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ruteri/shard-integrity-enforcer/interfaces"
)

// Client is a typed HTTP client for the enforcer status API. The zero value
// is not usable; construct it with NewClient.
type Client struct {
	baseURL string

	Client *http.Client
}

// NewClient creates a client for the enforcer status API at the given base
// URL, e.g. "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		Client:  http.DefaultClient,
	}
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("could not initialize request: %w", err)
	}

	if c.Client == nil {
		c.Client = http.DefaultClient
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("could not request enforcer: %w", err)
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read enforcer response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("enforcer returned %d: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("could not parse enforcer response: %w", err)
	}
	return nil
}

// Status fetches the current enforcement loop snapshot.
func (c *Client) Status(ctx context.Context) (*interfaces.EnforcerStatus, error) {
	var status interfaces.EnforcerStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Alerts fetches recorded alerts, newest first. A limit of zero returns all
// retained alerts.
func (c *Client) Alerts(ctx context.Context, limit int) ([]interfaces.Alert, error) {
	path := "/api/v1/alerts"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var alerts []interfaces.Alert
	if err := c.do(ctx, http.MethodGet, path, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// Shards fetches the per-shard observations from the latest snapshot.
func (c *Client) Shards(ctx context.Context) ([]interfaces.ShardState, error) {
	var shards []interfaces.ShardState
	if err := c.do(ctx, http.MethodGet, "/api/v1/shards", &shards); err != nil {
		return nil, err
	}
	return shards, nil
}

// TriggerCheck requests an enforcement cycle outside the regular schedule
// and waits for it to complete.
func (c *Client) TriggerCheck(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/check", nil)
}
