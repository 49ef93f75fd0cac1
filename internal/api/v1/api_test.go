// internal/api/v1/api_test.go
package v1

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	_ "modernc.org/sqlite"

	"github.com/notifyrr/notifyrr/internal/api/v1/mocks"
	"github.com/notifyrr/notifyrr/internal/catalog"
	"github.com/notifyrr/notifyrr/internal/events"
	"github.com/notifyrr/notifyrr/internal/history"
	"github.com/notifyrr/notifyrr/internal/migrations"
	"github.com/notifyrr/notifyrr/internal/notify"
)

type stubSource struct {
	subs []notify.Subscriber
	srv  notify.ServerInfo
}

func (s *stubSource) Subscribers() []notify.Subscriber { return s.subs }
func (s *stubSource) Server() notify.ServerInfo        { return s.srv }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	require.NoError(t, err, "open db")
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(migrations.InitialSQL)
	require.NoError(t, err, "apply schema")
	return db
}

type testEnv struct {
	mux      *http.ServeMux
	notifier *mocks.MockNotifier
	source   *stubSource
	bus      *events.Bus
	history  *history.Store
	eventLog *events.EventLog
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	ctrl := gomock.NewController(t)

	db := setupTestDB(t)
	bus := events.NewBus(nil, testLogger())
	t.Cleanup(func() { _ = bus.Close() })

	env := &testEnv{
		notifier: mocks.NewMockNotifier(ctrl),
		source:   &stubSource{},
		bus:      bus,
		history:  history.NewStore(db),
		eventLog: events.NewEventLog(db),
	}

	srv, err := New(ServerDeps{
		Notifier: env.notifier,
		Bus:      bus,
		Source:   env.source,
		History:  env.history,
		EventLog: env.eventLog,
	}, testLogger())
	require.NoError(t, err)

	env.mux = http.NewServeMux()
	srv.RegisterRoutes(env.mux)
	return env
}

func TestNew_MissingDeps(t *testing.T) {
	_, err := New(ServerDeps{}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notifier")
}

func TestItemAdded_Publishes(t *testing.T) {
	env := setupServer(t)
	added := env.bus.Subscribe(events.EventItemAdded, 1)

	body := `{"item_id":"m1","name":"Arrival","category":"movie"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/item-added", strings.NewReader(body))
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)

	select {
	case evt := <-added:
		ia, ok := evt.(*events.ItemAdded)
		require.True(t, ok)
		assert.Equal(t, "m1", ia.ItemID)
		assert.Equal(t, "Arrival", ia.Name)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestItemAdded_MissingID(t *testing.T) {
	env := setupServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/item-added", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "MISSING_ITEM_ID", resp.Code)
}

func TestItemAdded_InvalidBody(t *testing.T) {
	env := setupServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/item-added", strings.NewReader(`{`))
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendTest_OK(t *testing.T) {
	env := setupServer(t)
	env.notifier.EXPECT().SendTest(gomock.Any(), "alice").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/test/alice", nil)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSendTest_UnknownSubscriber(t *testing.T) {
	env := setupServer(t)
	env.notifier.EXPECT().
		SendTest(gomock.Any(), "ghost").
		Return(notify.ErrUnknownSubscriber)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/test/ghost", nil)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendTest_DeliveryFailure(t *testing.T) {
	env := setupServer(t)
	env.notifier.EXPECT().
		SendTest(gomock.Any(), "alice").
		Return(errors.New("webhook returned 401"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/test/alice", nil)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGetStatus(t *testing.T) {
	env := setupServer(t)
	env.source.subs = []notify.Subscriber{{Name: "alice"}, {Name: "bob"}}
	env.notifier.EXPECT().PendingCount().Return(3)
	env.notifier.EXPECT().QueueDepth().Return(1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Subscribers)
	assert.Equal(t, 3, resp.PendingCandidates)
	assert.Equal(t, 1, resp.QueueDepth)
}

func TestListSubscribers(t *testing.T) {
	env := setupServer(t)
	env.source.subs = []notify.Subscriber{
		{
			Name:          "bravo",
			Enabled:       true,
			AnnounceOnAdd: true,
			WebhookURL:    "https://discord.com/api/webhooks/1/secret-token",
			Mention:       notify.MentionHere,
			Categories: map[catalog.Category]bool{
				catalog.CategoryMovie:   true,
				catalog.CategoryEpisode: true,
				catalog.CategorySeries:  false,
			},
		},
		{Name: "alpha"},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscribers", nil)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret-token", "webhook URLs must not leak")

	var resp []subscriberResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "alpha", resp[0].Name)
	assert.Equal(t, "bravo", resp[1].Name)
	assert.Equal(t, []string{"episode", "movie"}, resp[1].Categories)
	assert.Equal(t, "here", resp[1].Mention)
}

func TestListHistory(t *testing.T) {
	env := setupServer(t)
	require.NoError(t, env.history.Add(&history.Record{
		Subscriber: "alice",
		ItemID:     "m1",
		Title:      "Arrival (2016)",
		Kind:       history.KindMediaAdded,
		Delivered:  true,
	}))
	require.NoError(t, env.history.Add(&history.Record{
		Subscriber: "bob",
		Title:      "It worked!",
		Kind:       history.KindTest,
		Delivered:  false,
		Error:      "webhook returned 404",
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp listHistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)

	// Filtered by subscriber.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/history?subscriber=alice", nil)
	w = httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "Arrival (2016)", resp.Items[0].Title)
	assert.True(t, resp.Items[0].Delivered)
}

func TestListHistory_NoStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	bus := events.NewBus(nil, testLogger())
	t.Cleanup(func() { _ = bus.Close() })

	srv, err := New(ServerDeps{
		Notifier: mocks.NewMockNotifier(ctrl),
		Bus:      bus,
		Source:   &stubSource{},
	}, testLogger())
	require.NoError(t, err)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListEvents(t *testing.T) {
	env := setupServer(t)
	_, err := env.eventLog.Append(&events.ItemAdded{
		BaseEvent: events.NewBaseEvent(events.EventItemAdded, events.EntityItem, "m1"),
		ItemID:    "m1",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp listEventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, events.EventItemAdded, resp.Items[0].EventType)
	assert.Equal(t, "m1", resp.Items[0].EntityID)
}

func TestListEvents_EntityFilter(t *testing.T) {
	env := setupServer(t)
	for _, id := range []string{"m1", "m2"} {
		_, err := env.eventLog.Append(&events.ItemAdded{
			BaseEvent: events.NewBaseEvent(events.EventItemAdded, events.EntityItem, id),
			ItemID:    id,
		})
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?entity=item/m2", nil)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp listEventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "m2", resp.Items[0].EntityID)
}

func TestListEvents_InvalidEntity(t *testing.T) {
	env := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?entity=justanid", nil)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListEvents_SinceFilter(t *testing.T) {
	env := setupServer(t)
	_, err := env.eventLog.Append(&events.ItemAdded{
		BaseEvent: events.NewBaseEvent(events.EventItemAdded, events.EntityItem, "m1"),
		ItemID:    "m1",
	})
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?since="+past, nil)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp listEventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/events?since=notatime", nil)
	w = httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListEvents_InvalidPagination(t *testing.T) {
	env := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=-1", nil)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
