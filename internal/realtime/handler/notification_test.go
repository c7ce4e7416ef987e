package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"notification-relay/internal/domain/notification"
	wstypes "notification-relay/internal/domain/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeIngestor struct {
	ingested []notification.Notification
	counts   []int
	reads    []string
	err      error
}

func (f *fakeIngestor) Ingest(n notification.Notification) (bool, error) {
	f.ingested = append(f.ingested, n)
	return f.err == nil, f.err
}

func (f *fakeIngestor) SyncUnreadCount(count int) error {
	f.counts = append(f.counts, count)
	return f.err
}

func (f *fakeIngestor) ApplyRemoteRead(id string) (bool, error) {
	f.reads = append(f.reads, id)
	return true, f.err
}

func mustEnvelope(t *testing.T, raw string) *wstypes.Envelope {
	t.Helper()
	env, err := wstypes.ParseEnvelope([]byte(raw))
	require.NoError(t, err)
	return env
}

func newHandler(ing Ingestor) *NotificationHandler {
	h := NewNotificationHandler(ing, zap.NewNop())
	h.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return h
}

func TestNotificationHandler_notification_keeps_server_id(t *testing.T) {
	ing := &fakeIngestor{}
	h := newHandler(ing)

	err := h.HandleMessage(context.Background(), mustEnvelope(t,
		`{"type":"notification","data":{"id":981,"title":"Payment received","type":"success","priority":"high"}}`))
	require.NoError(t, err)

	require.Len(t, ing.ingested, 1)
	n := ing.ingested[0]
	assert.Equal(t, "981", n.ID)
	assert.True(t, n.Remote)
	assert.Equal(t, notification.TypeSuccess, n.Type)
	assert.Equal(t, int64(6000), n.DurationMs)
	assert.Equal(t, notification.PositionTopRight, n.Position)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), n.CreatedAt)
}

func TestNotificationHandler_notification_rejects_malformed(t *testing.T) {
	ing := &fakeIngestor{}
	h := newHandler(ing)

	for _, raw := range []string{
		`{"type":"notification"}`,
		`{"type":"notification","data":{"title":"no id"}}`,
		`{"type":"notification","data":{"id":"1"}}`,
		`{"type":"notification","data":"oops"}`,
	} {
		err := h.HandleMessage(context.Background(), mustEnvelope(t, raw))
		assert.Error(t, err, raw)
	}
	assert.Empty(t, ing.ingested)
}

func TestNotificationHandler_unread_count(t *testing.T) {
	ing := &fakeIngestor{}
	h := newHandler(ing)

	require.NoError(t, h.HandleMessage(context.Background(), mustEnvelope(t, `{"type":"unread_count","data":{"unread_count":7}}`)))
	require.NoError(t, h.HandleMessage(context.Background(), mustEnvelope(t, `{"type":"unread_count","data":{"count":2}}`)))
	assert.Equal(t, []int{7, 2}, ing.counts)

	err := h.HandleMessage(context.Background(), mustEnvelope(t, `{"type":"unread_count","data":{}}`))
	assert.ErrorIs(t, err, wstypes.ErrMalformedMessage)
}

func TestNotificationHandler_read_echo(t *testing.T) {
	ing := &fakeIngestor{}
	h := newHandler(ing)

	require.NoError(t, h.HandleMessage(context.Background(), mustEnvelope(t, `{"type":"notification_read","data":{"notification_id":"abc"}}`)))
	assert.Equal(t, []string{"abc"}, ing.reads)

	err := h.HandleMessage(context.Background(), mustEnvelope(t, `{"type":"notification_read","data":{}}`))
	assert.ErrorIs(t, err, wstypes.ErrMalformedMessage)
}

func TestNotificationHandler_propagates_ingestor_errors(t *testing.T) {
	boom := errors.New("closed")
	h := newHandler(&fakeIngestor{err: boom})

	err := h.HandleMessage(context.Background(), mustEnvelope(t, `{"type":"unread_count","data":{"unread_count":1}}`))
	assert.ErrorIs(t, err, boom)

	err = h.HandleMessage(context.Background(), mustEnvelope(t, `{"type":"heartbeat"}`))
	assert.Error(t, err)
}
