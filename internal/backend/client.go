// Package backend is the panel's HTTP client for the clip backend API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/clipdesk/clipdesk/internal/clip"
	"github.com/clipdesk/clipdesk/internal/store"
)

// RequestError is a non-2xx answer from the backend.
type RequestError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("backend %s failed: HTTP %d: %s", e.Path, e.StatusCode, e.Body)
}

// Action is one of the backend control triggers.
type Action string

const (
	ActionPurge      Action = "purge"
	ActionProcess    Action = "process"
	ActionJSONExport Action = "jsonexport"
)

// Actions lists the control triggers in panel order.
var Actions = []Action{ActionPurge, ActionProcess, ActionJSONExport}

// ParseAction validates a trigger name.
func ParseAction(s string) (Action, bool) {
	for _, a := range Actions {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

func (a Action) Path() string {
	return "/api/" + string(a)
}

// Client talks to the backend at baseURL. Requests carry no client timeout;
// they end when the server answers or ctx is cancelled.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Export submits one clip. It satisfies clip.Exporter.
func (c *Client) Export(ctx context.Context, payload clip.Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal export payload: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, "/api/export", body)
	return err
}

// Trigger fires a control action with no request body.
func (c *Client) Trigger(ctx context.Context, action Action) error {
	_, err := c.do(ctx, http.MethodPost, action.Path(), nil)
	return err
}

func (c *Client) Purge(ctx context.Context) error {
	return c.Trigger(ctx, ActionPurge)
}

func (c *Client) Process(ctx context.Context) error {
	return c.Trigger(ctx, ActionProcess)
}

func (c *Client) JSONExport(ctx context.Context) error {
	return c.Trigger(ctx, ActionJSONExport)
}

// MostReplayed fetches the heat-map markers for videoID.
func (c *Client) MostReplayed(ctx context.Context, videoID string) ([]store.Marker, error) {
	respBody, err := c.do(ctx, http.MethodGet, "/api/most-replayed?videoId="+url.QueryEscape(videoID), nil)
	if err != nil {
		return nil, err
	}

	var markers []store.Marker
	if err := json.Unmarshal(respBody, &markers); err != nil {
		return nil, fmt.Errorf("decode most-replayed response: %w", err)
	}
	return markers, nil
}

// Exports lists the stored exports.
func (c *Client) Exports(ctx context.Context) ([]store.Export, error) {
	respBody, err := c.do(ctx, http.MethodGet, "/api/exports", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Exports []store.Export `json:"exports"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decode exports response: %w", err)
	}
	return resp.Exports, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("backend request", "method", method, "path", path, "body_bytes", len(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	excerpt := respBody
	if len(excerpt) > 4096 {
		excerpt = excerpt[:4096]
	}
	return nil, &RequestError{Path: path, StatusCode: resp.StatusCode, Body: string(excerpt)}
}
