// internal/api/v1/types.go
package v1

import "time"

// itemAddedRequest is the inbound library-change notification.
type itemAddedRequest struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name,omitempty"`
	Category string `json:"category,omitempty"`
}

// statusResponse is the response for GET /status.
type statusResponse struct {
	Status            string `json:"status"`
	Subscribers       int    `json:"subscribers"`
	PendingCandidates int    `json:"pending_candidates"`
	QueueDepth        int    `json:"queue_depth"`
	UptimeSeconds     int64  `json:"uptime_seconds"`
}

// subscriberResponse is the API representation of a subscriber. Webhook
// URLs carry tokens and are never exposed.
type subscriberResponse struct {
	Name          string   `json:"name"`
	Enabled       bool     `json:"enabled"`
	AnnounceOnAdd bool     `json:"announce_on_add"`
	Mention       string   `json:"mention"`
	Categories    []string `json:"categories"`
}

// historyItemResponse is the API representation of a delivery record.
type historyItemResponse struct {
	ID         string    `json:"id"`
	Subscriber string    `json:"subscriber"`
	ItemID     string    `json:"item_id,omitempty"`
	Title      string    `json:"title"`
	Kind       string    `json:"kind"`
	Delivered  bool      `json:"delivered"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type listHistoryResponse struct {
	Items []historyItemResponse `json:"items"`
	Total int                   `json:"total"`
}

// EventResponse is the API representation of a logged event.
type EventResponse struct {
	ID         int64  `json:"id"`
	EventType  string `json:"event_type"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	OccurredAt string `json:"occurred_at"`
}

type listEventsResponse struct {
	Items  []EventResponse `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}
