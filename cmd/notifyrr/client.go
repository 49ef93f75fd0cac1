package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// Client wraps HTTP calls to the notifyrr server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new notifyrr API client.
func NewClient(serverURL string) *Client {
	return &Client{
		baseURL: serverURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) get(path string, result any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func (c *Client) post(path string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", reader)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// API response types (mirror server types)

type StatusResponse struct {
	Status            string `json:"status"`
	Subscribers       int    `json:"subscribers"`
	PendingCandidates int    `json:"pending_candidates"`
	QueueDepth        int    `json:"queue_depth"`
	UptimeSeconds     int64  `json:"uptime_seconds"`
}

type SubscriberResponse struct {
	Name          string   `json:"name"`
	Enabled       bool     `json:"enabled"`
	AnnounceOnAdd bool     `json:"announce_on_add"`
	Mention       string   `json:"mention"`
	Categories    []string `json:"categories"`
}

type HistoryItemResponse struct {
	ID         string    `json:"id"`
	Subscriber string    `json:"subscriber"`
	ItemID     string    `json:"item_id"`
	Title      string    `json:"title"`
	Kind       string    `json:"kind"`
	Delivered  bool      `json:"delivered"`
	Error      string    `json:"error"`
	CreatedAt  time.Time `json:"created_at"`
}

type HistoryResponse struct {
	Items []HistoryItemResponse `json:"items"`
	Total int                   `json:"total"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	EventType  string `json:"event_type"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	OccurredAt string `json:"occurred_at"`
}

type EventsResponse struct {
	Items  []EventResponse `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// Status fetches the pipeline status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.get("/api/v1/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Subscribers lists the configured subscribers.
func (c *Client) Subscribers() ([]SubscriberResponse, error) {
	var resp []SubscriberResponse
	if err := c.get("/api/v1/subscribers", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Test fires a test notification at the named subscriber's webhook.
func (c *Client) Test(name string) error {
	return c.post("/api/v1/test/"+url.PathEscape(name), nil, nil)
}

// History lists delivery history, optionally filtered.
func (c *Client) History(subscriber, kind string, limit int) (*HistoryResponse, error) {
	q := url.Values{}
	if subscriber != "" {
		q.Set("subscriber", subscriber)
	}
	if kind != "" {
		q.Set("kind", kind)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}

	path := "/api/v1/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp HistoryResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events lists recent pipeline events, or all events for one entity when
// entity is set ("<type>/<id>").
func (c *Client) Events(limit int, entity string) (*EventsResponse, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))
	if entity != "" {
		q.Set("entity", entity)
	}

	var resp EventsResponse
	if err := c.get("/api/v1/events?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	ago := time.Since(t)
	switch {
	case ago < time.Minute:
		return "just now"
	case ago < time.Hour:
		return fmt.Sprintf("%dm ago", int(ago.Minutes()))
	case ago < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(ago.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(ago.Hours()/24))
	}
}
