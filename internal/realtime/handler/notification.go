// internal/realtime/handler/notification.go
package handler

import (
	"context"
	"fmt"
	"time"

	"notification-relay/internal/domain/notification"
	wstypes "notification-relay/internal/domain/websocket"

	"go.uber.org/zap"
)

// Ingestor is the part of the orchestrator server frames act on.
type Ingestor interface {
	Ingest(n notification.Notification) (bool, error)
	SyncUnreadCount(count int) error
	ApplyRemoteRead(id string) (bool, error)
}

type NotificationHandler struct {
	ingestor Ingestor
	logger   *zap.Logger
	now      func() time.Time
}

func NewNotificationHandler(ingestor Ingestor, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{
		ingestor: ingestor,
		logger:   logger.With(zap.String("component", "notification_handler")),
		now:      time.Now,
	}
}

// SupportedEvents returns events this handler supports
func (h *NotificationHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{
		wstypes.EventTypeNotification,
		wstypes.EventTypeUnreadCount,
		wstypes.EventTypeNotificationRead,
	}
}

// HandleMessage processes notification-related messages
func (h *NotificationHandler) HandleMessage(ctx context.Context, env *wstypes.Envelope) error {
	switch env.Type {
	case wstypes.EventTypeNotification:
		return h.handleNotification(env)

	case wstypes.EventTypeUnreadCount:
		return h.handleUnreadCount(env)

	case wstypes.EventTypeNotificationRead:
		return h.handleRead(env)

	default:
		return fmt.Errorf("unsupported event type: %s", env.Type)
	}
}

func (h *NotificationHandler) handleNotification(env *wstypes.Envelope) error {
	var data wstypes.NotificationData
	if err := env.Decode(&data); err != nil {
		return err
	}

	n, err := data.ToNotification(h.now())
	if err != nil {
		return err
	}

	accepted, err := h.ingestor.Ingest(n)
	if err != nil {
		return err
	}
	if accepted {
		h.logger.Debug("server notification ingested", zap.String("notification_id", n.ID))
	}
	return nil
}

func (h *NotificationHandler) handleUnreadCount(env *wstypes.Envelope) error {
	var data wstypes.UnreadCountData
	if err := env.Decode(&data); err != nil {
		return err
	}

	count, ok := data.Value()
	if !ok {
		return fmt.Errorf("%w: unread_count missing", wstypes.ErrMalformedMessage)
	}
	return h.ingestor.SyncUnreadCount(count)
}

func (h *NotificationHandler) handleRead(env *wstypes.Envelope) error {
	var ref wstypes.NotificationRef
	if err := env.Decode(&ref); err != nil {
		return err
	}
	id := ref.Value()
	if id == "" {
		return fmt.Errorf("%w: notification id missing", wstypes.ErrMalformedMessage)
	}

	found, err := h.ingestor.ApplyRemoteRead(id)
	if err != nil {
		return err
	}
	if !found {
		h.logger.Debug("read echo for unknown notification", zap.String("notification_id", id))
	}
	return nil
}
