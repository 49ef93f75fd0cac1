// Package v1 implements the native REST API.
package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/notifyrr/notifyrr/internal/events"
	"github.com/notifyrr/notifyrr/internal/history"
	"github.com/notifyrr/notifyrr/internal/notify"
)

// Server is the v1 API server.
type Server struct {
	deps    ServerDeps
	logger  *slog.Logger
	started time.Time
}

// New creates a new v1 API server.
func New(deps ServerDeps, logger *slog.Logger) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		deps:    deps,
		logger:  logger.With("component", "api"),
		started: time.Now(),
	}, nil
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Ingestion
	mux.HandleFunc("POST /api/v1/events/item-added", s.itemAdded)

	// Test notifications
	mux.HandleFunc("POST /api/v1/test/{subscriber}", s.sendTest)

	// System
	mux.HandleFunc("GET /api/v1/status", s.getStatus)
	mux.HandleFunc("GET /api/v1/subscribers", s.listSubscribers)
	mux.HandleFunc("GET /api/v1/history", s.listHistory)
	mux.HandleFunc("GET /api/v1/events", s.listEvents)
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// queryInt extracts an optional integer from query string.
func queryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

// itemAdded accepts a library-change notification and feeds it into the
// pipeline through the event bus. The response is 202: tracking happens
// asynchronously and readiness may be minutes away.
func (s *Server) itemAdded(w http.ResponseWriter, r *http.Request) {
	var req itemAddedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ITEM_ID", "item_id is required")
		return
	}

	evt := &events.ItemAdded{
		BaseEvent: events.NewBaseEvent(events.EventItemAdded, events.EntityItem, req.ItemID),
		ItemID:    req.ItemID,
		Name:      req.Name,
		Category:  req.Category,
	}
	if err := s.deps.Bus.Publish(r.Context(), evt); err != nil {
		writeError(w, http.StatusInternalServerError, "PUBLISH_FAILED", err.Error())
		return
	}

	s.logger.Debug("item-added event accepted", "item_id", req.ItemID)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) sendTest(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("subscriber")
	if name == "" {
		writeError(w, http.StatusBadRequest, "MISSING_SUBSCRIBER", "subscriber name is required")
		return
	}

	if err := s.deps.Notifier.SendTest(r.Context(), name); err != nil {
		if errors.Is(err, notify.ErrUnknownSubscriber) {
			writeError(w, http.StatusNotFound, "UNKNOWN_SUBSCRIBER", err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "DELIVERY_FAILED", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent", "subscriber": name})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:            "ok",
		Subscribers:       len(s.deps.Source.Subscribers()),
		PendingCandidates: s.deps.Notifier.PendingCount(),
		QueueDepth:        s.deps.Notifier.QueueDepth(),
		UptimeSeconds:     int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) listSubscribers(w http.ResponseWriter, r *http.Request) {
	subs := s.deps.Source.Subscribers()

	resp := make([]subscriberResponse, 0, len(subs))
	for _, sub := range subs {
		categories := make([]string, 0, len(sub.Categories))
		for c, enabled := range sub.Categories {
			if enabled {
				categories = append(categories, string(c))
			}
		}
		sort.Strings(categories)

		resp = append(resp, subscriberResponse{
			Name:          sub.Name,
			Enabled:       sub.Enabled,
			AnnounceOnAdd: sub.AnnounceOnAdd,
			Mention:       string(sub.Mention),
			Categories:    categories,
		})
	}
	sort.Slice(resp, func(i, j int) bool { return resp[i].Name < resp[j].Name })

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "NO_HISTORY", "History store not configured")
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", "limit must be non-negative")
		return
	}

	records, err := s.deps.History.List(history.Filter{
		Subscriber: r.URL.Query().Get("subscriber"),
		Kind:       r.URL.Query().Get("kind"),
		Limit:      limit,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "HISTORY_ERROR", err.Error())
		return
	}

	resp := listHistoryResponse{
		Items: make([]historyItemResponse, len(records)),
		Total: len(records),
	}
	for i, rec := range records {
		resp.Items[i] = historyItemResponse{
			ID:         rec.ID,
			Subscriber: rec.Subscriber,
			ItemID:     rec.ItemID,
			Title:      rec.Title,
			Kind:       rec.Kind,
			Delivered:  rec.Delivered,
			Error:      rec.Error,
			CreatedAt:  rec.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	if limit < 0 || offset < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", "limit and offset must be non-negative")
		return
	}
	const maxLimit = 1000
	if limit > maxLimit {
		limit = maxLimit
	}

	if s.deps.EventLog == nil {
		writeError(w, http.StatusServiceUnavailable, "NO_EVENT_LOG", "Event log not configured")
		return
	}

	var (
		logged []events.RawEvent
		total  int
		err    error
	)
	switch {
	case r.URL.Query().Get("entity") != "":
		entityType, entityID, ok := strings.Cut(r.URL.Query().Get("entity"), "/")
		if !ok || entityType == "" || entityID == "" {
			writeError(w, http.StatusBadRequest, "INVALID_ENTITY", "entity must be <type>/<id>")
			return
		}
		logged, err = s.deps.EventLog.ForEntity(entityType, entityID)
		total = len(logged)
	case r.URL.Query().Get("since") != "":
		var since time.Time
		since, err = time.Parse(time.RFC3339, r.URL.Query().Get("since"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_SINCE", "since must be RFC3339")
			return
		}
		logged, err = s.deps.EventLog.Since(since)
		total = len(logged)
	default:
		logged, total, err = s.deps.EventLog.Recent(limit, offset)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EVENT_ERROR", err.Error())
		return
	}

	resp := listEventsResponse{
		Items:  make([]EventResponse, len(logged)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for i, e := range logged {
		resp.Items[i] = EventResponse{
			ID:         e.ID,
			EventType:  e.EventType,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			OccurredAt: e.OccurredAt.Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
