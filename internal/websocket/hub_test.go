package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"notification-relay/internal/domain/notification"
	wstypes "notification-relay/internal/domain/websocket"
	notifsvc "notification-relay/internal/service/notification"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type call struct {
	op            string
	id            string
	moveToHistory bool
}

type fakeOrchestrator struct {
	mu    sync.Mutex
	calls []call
	state notification.State
	known map[string]bool
}

func (f *fakeOrchestrator) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeOrchestrator) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeOrchestrator) State() notification.State { return f.state }

func (f *fakeOrchestrator) Dismiss(id string, moveToHistory bool) (bool, error) {
	f.record(call{op: "dismiss", id: id, moveToHistory: moveToHistory})
	return f.known[id], nil
}

func (f *fakeOrchestrator) MarkAsRead(id string) (bool, error) {
	f.record(call{op: "mark_read", id: id})
	return f.known[id], nil
}

func (f *fakeOrchestrator) MarkAllAsRead() error {
	f.record(call{op: "mark_all_read"})
	return nil
}

func (f *fakeOrchestrator) TriggerAction(id string) (bool, error) {
	f.record(call{op: "action", id: id})
	return f.known[id], nil
}

func (f *fakeOrchestrator) DismissToast() (bool, error) {
	f.record(call{op: "dismiss_toast"})
	return true, nil
}

type hubFixture struct {
	hub    *Hub
	orch   *fakeOrchestrator
	states chan notification.State
	events chan notifsvc.Event
	url    string
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()
	f := &hubFixture{
		orch: &fakeOrchestrator{
			state: notification.State{UnreadCount: 2},
			known: map[string]bool{"n1": true},
		},
		states: make(chan notification.State, 4),
		events: make(chan notifsvc.Event, 4),
	}
	f.hub = NewHub(f.orch, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go f.hub.Run(ctx, f.states, f.events)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(f.hub, conn, r.RemoteAddr)
		if err := f.hub.Register(client); err != nil {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	f.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return f
}

func (f *hubFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type frame struct {
	Type wstypes.EventType `json:"type"`
	Data json.RawMessage   `json:"data"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestHub_sends_snapshot_on_connect(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)

	got := readFrame(t, conn)
	assert.Equal(t, wstypes.UIEventState, got.Type)

	var s notification.State
	require.NoError(t, json.Unmarshal(got.Data, &s))
	assert.Equal(t, 2, s.UnreadCount)
	assert.Eventually(t, func() bool { return f.hub.TotalClients() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHub_broadcasts_states_and_events(t *testing.T) {
	f := newHubFixture(t)
	a := f.dial(t)
	b := f.dial(t)
	readFrame(t, a)
	readFrame(t, b)

	f.states <- notification.State{UnreadCount: 9}
	for _, conn := range []*websocket.Conn{a, b} {
		got := readFrame(t, conn)
		assert.Equal(t, wstypes.UIEventState, got.Type)
		assert.Contains(t, string(got.Data), `"unread_count":9`)
	}

	f.events <- notifsvc.Event{Type: notifsvc.EventAction, Notification: &notification.Notification{ID: "n1"}}
	got := readFrame(t, a)
	assert.Equal(t, wstypes.UIEventNotice, got.Type)
	assert.Contains(t, string(got.Data), `"type":"action"`)
}

func TestHub_applies_ui_requests(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)
	readFrame(t, conn)

	requests := []string{
		`{"type":"dismiss","data":{"id":"n1"}}`,
		`{"type":"dismiss","data":{"id":"n1","move_to_history":false}}`,
		`{"type":"mark_read","data":{"id":"n1"}}`,
		`{"type":"action","data":{"id":"n1"}}`,
		`{"type":"mark_all_read"}`,
		`{"type":"dismiss_toast"}`,
	}
	for _, r := range requests {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(r)))
	}

	require.Eventually(t, func() bool { return len(f.orch.Calls()) == len(requests) }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []call{
		{op: "dismiss", id: "n1", moveToHistory: true},
		{op: "dismiss", id: "n1", moveToHistory: false},
		{op: "mark_read", id: "n1"},
		{op: "action", id: "n1"},
		{op: "mark_all_read"},
		{op: "dismiss_toast"},
	}, f.orch.Calls())
}

func TestHub_replies_to_ping_and_reports_errors(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, wstypes.UIEventPong, readFrame(t, conn).Type)

	for _, bad := range []string{
		`garbage`,
		`{"type":"dismiss","data":{}}`,
		`{"type":"mark_read","data":{"id":"unknown"}}`,
		`{"type":"weather"}`,
	} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(bad)))
		got := readFrame(t, conn)
		assert.Equal(t, wstypes.UIEventError, got.Type, bad)
	}
}

func TestHub_Register_after_stop(t *testing.T) {
	hub := NewHub(&fakeOrchestrator{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx, nil, nil)
		close(stopped)
	}()
	cancel()
	<-stopped

	assert.ErrorIs(t, hub.Register(&Client{}), ErrHubStopped)
}
