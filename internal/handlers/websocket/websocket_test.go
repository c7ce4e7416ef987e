package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	wstypes "notification-relay/internal/domain/websocket"
	notifsvc "notification-relay/internal/service/notification"
	ws "notification-relay/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T, allowed []string) (*httptest.Server, *ws.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orch := notifsvc.NewOrchestrator(notifsvc.Config{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go orch.Run(ctx)

	hub := ws.NewHub(orch, zap.NewNop())
	states, unsubStates := orch.Subscribe(4)
	events, unsubEvents := orch.Events(4)
	go hub.Run(ctx, states, events)

	h := NewWebSocketHandler(hub, allowed, zap.NewNop())
	r := gin.New()
	r.GET("/ws", h.HandleConnection)
	r.GET("/ws/stats", h.GetStats)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		unsubStates()
		unsubEvents()
		cancel()
		orch.Close()
	})
	return srv, hub
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestHandleConnection_sends_initial_state(t *testing.T) {
	srv, hub := setup(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg wstypes.WSMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, wstypes.UIEventState, msg.Type)

	require.Eventually(t, func() bool { return hub.TotalClients() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestHandleConnection_rejects_foreign_origin(t *testing.T) {
	srv, _ := setup(t, []string{"http://ui.local"})

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://UI.local")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	conn.Close()
}

func TestOriginChecker_wildcard(t *testing.T) {
	check := originChecker([]string{"*"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://anything")
	assert.True(t, check(req))
}

func TestGetStats(t *testing.T) {
	srv, _ := setup(t, nil)

	resp, err := http.Get(srv.URL + "/ws/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Total int `json:"total_connections"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, 0, body.Data.Total)
}
