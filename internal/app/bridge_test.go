package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"notification-relay/internal/domain/notification"
	wstypes "notification-relay/internal/domain/websocket"
	"notification-relay/internal/eventbus"
	"notification-relay/internal/realtime"
	notifsvc "notification-relay/internal/service/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLink struct {
	mu     sync.Mutex
	sent   []any
	events *eventbus.Bus[realtime.ChannelEvent]
}

func newFakeLink() *fakeLink {
	return &fakeLink{events: eventbus.New[realtime.ChannelEvent]()}
}

func (f *fakeLink) Send(msg any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return true
}

func (f *fakeLink) Sent() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.sent...)
}

func (f *fakeLink) Events(buffer int) (<-chan realtime.ChannelEvent, func()) {
	return f.events.Subscribe(buffer)
}

func startOrchestrator(t *testing.T) *notifsvc.Orchestrator {
	t.Helper()
	o := notifsvc.NewOrchestrator(notifsvc.Config{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go o.Run(ctx)
	t.Cleanup(func() {
		cancel()
		o.Close()
	})
	return o
}

func startBridge(t *testing.T, o *notifsvc.Orchestrator, link *fakeLink) {
	t.Helper()
	b := NewBridge(o, link, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go b.Run(ctx)
}

func TestBridge_forwards_local_reads_of_server_notifications(t *testing.T) {
	o := startOrchestrator(t)
	link := newFakeLink()
	startBridge(t, o, link)

	_, err := o.Ingest(notification.Notification{ID: "srv-1", Title: "remote", Remote: true})
	require.NoError(t, err)
	noToast := false
	local, err := o.Show(notification.ShowOptions{Title: "local", ShowAsToast: &noToast})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(o.State().Active) == 2 }, 2*time.Second, 5*time.Millisecond)

	_, err = o.MarkAsRead("srv-1")
	require.NoError(t, err)
	_, err = o.MarkAsRead(local)
	require.NoError(t, err)
	require.NoError(t, o.MarkAllAsRead())

	require.Eventually(t, func() bool { return len(link.Sent()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []any{wstypes.MarkRead("srv-1"), wstypes.MarkAllRead()}, link.Sent())
}

func TestBridge_does_not_echo_remote_reads(t *testing.T) {
	o := startOrchestrator(t)
	link := newFakeLink()
	startBridge(t, o, link)

	_, err := o.Ingest(notification.Notification{ID: "srv-1", Title: "remote", Remote: true})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(o.State().Active) == 1 }, 2*time.Second, 5*time.Millisecond)

	found, err := o.ApplyRemoteRead("srv-1")
	require.NoError(t, err)
	require.True(t, found)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, link.Sent())
}

func TestBridge_requests_unread_count_on_connect(t *testing.T) {
	o := startOrchestrator(t)
	link := newFakeLink()
	startBridge(t, o, link)

	link.events.Publish(realtime.ChannelEvent{Type: realtime.EventStateChanged, State: realtime.StateConnecting})
	link.events.Publish(realtime.ChannelEvent{Type: realtime.EventStateChanged, State: realtime.StateConnected})
	link.events.Publish(realtime.ChannelEvent{Type: realtime.EventReconnectExhausted, State: realtime.StateDisconnected})

	require.Eventually(t, func() bool { return len(link.Sent()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, wstypes.GetUnreadCount(), link.Sent()[0])
}
