// internal/realtime/router.go
package realtime

import (
	"context"
	"encoding/json"
	"time"

	wstypes "notification-relay/internal/domain/websocket"
	"notification-relay/internal/eventbus"

	"go.uber.org/zap"
)

// RouterEvent is what subscribers see for every routed envelope other than
// liveness frames.
type RouterEvent struct {
	Type           wstypes.EventType  `json:"type"`
	NotificationID string             `json:"notification_id,omitempty"`
	Error          *wstypes.ErrorData `json:"error,omitempty"`
	Data           json.RawMessage    `json:"data,omitempty"`
	Timestamp      string             `json:"timestamp,omitempty"`
	At             time.Time          `json:"at"`
}

// Router classifies inbound envelopes by type and hands them to the
// registered handlers.
type Router struct {
	registry *HandlerRegistry
	events   *eventbus.Bus[RouterEvent]
	logger   *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		registry: NewHandlerRegistry(),
		events:   eventbus.New[RouterEvent](),
		logger:   logger.With(zap.String("component", "router")),
	}
}

func (r *Router) RegisterHandler(handler MessageHandler) {
	r.registry.Register(handler)
}

// Subscribe streams routed events.
func (r *Router) Subscribe(buffer int) (<-chan RouterEvent, func()) {
	return r.events.Subscribe(buffer)
}

func (r *Router) Close() {
	r.events.Close()
}

// Dispatch implements Dispatcher. It never fails: handler errors and unknown
// types are logged and the frame is dropped.
func (r *Router) Dispatch(ctx context.Context, env *wstypes.Envelope) {
	ev := RouterEvent{
		Type:      env.Type,
		Data:      env.Data,
		Timestamp: env.Timestamp,
		At:        time.Now(),
	}

	switch env.Type {
	case wstypes.EventTypeHeartbeat, wstypes.EventTypePong:
		return

	case wstypes.EventTypeError:
		var data wstypes.ErrorData
		if err := env.Decode(&data); err != nil {
			r.logger.Warn("server error frame without readable payload", zap.Error(err))
		} else {
			ev.Error = &data
		}
		r.logger.Warn("server reported error",
			zap.String("code", data.Code),
			zap.String("message", data.Message),
			zap.String("details", data.Details),
		)
		r.events.Publish(ev)
		return

	case wstypes.EventTypeNotificationRead, wstypes.EventTypeNotificationArchived:
		var ref wstypes.NotificationRef
		if err := env.Decode(&ref); err != nil || ref.Value() == "" {
			r.logger.Warn("echo frame dropped: missing notification id",
				zap.String("event_type", string(env.Type)),
				zap.Error(err),
			)
			return
		}
		ev.NotificationID = ref.Value()
	}

	handler, ok := r.registry.GetHandler(env.Type)
	if !ok {
		if ev.NotificationID == "" {
			r.logger.Info("unknown message type ignored", zap.String("event_type", string(env.Type)))
			return
		}
	} else if err := handler.HandleMessage(ctx, env); err != nil {
		r.logger.Warn("message dropped",
			zap.String("event_type", string(env.Type)),
			zap.Error(err),
		)
		return
	}

	r.events.Publish(ev)
}
