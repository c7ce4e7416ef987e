// internal/app/bridge.go
package app

import (
	"context"

	wstypes "notification-relay/internal/domain/websocket"
	"notification-relay/internal/realtime"
	notifsvc "notification-relay/internal/service/notification"

	"go.uber.org/zap"
)

type eventSource interface {
	Events(buffer int) (<-chan notifsvc.Event, func())
}

type channelLink interface {
	Send(msg any) bool
	Events(buffer int) (<-chan realtime.ChannelEvent, func())
}

// Bridge keeps the server in step with local state: local reads of server
// notifications become mark_read frames, and every new connection asks for
// the authoritative unread count.
type Bridge struct {
	channel channelLink
	events  <-chan notifsvc.Event
	states  <-chan realtime.ChannelEvent
	unsub   []func()
	logger  *zap.Logger
}

// NewBridge subscribes immediately so nothing published before Run is lost.
func NewBridge(orchestrator eventSource, channel channelLink, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	events, unsubEvents := orchestrator.Events(64)
	states, unsubStates := channel.Events(16)
	return &Bridge{
		channel: channel,
		events:  events,
		states:  states,
		unsub:   []func(){unsubEvents, unsubStates},
		logger:  logger.With(zap.String("component", "bridge")),
	}
}

func (b *Bridge) Run(ctx context.Context) {
	defer func() {
		for _, fn := range b.unsub {
			fn()
		}
	}()

	events, states := b.events, b.states
	for events != nil || states != nil {
		select {
		case <-ctx.Done():
			return

		case e, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			b.onNotificationEvent(e)

		case e, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			b.onChannelEvent(e)
		}
	}
}

func (b *Bridge) onNotificationEvent(e notifsvc.Event) {
	if e.Origin != notifsvc.OriginLocal {
		return
	}

	switch e.Type {
	case notifsvc.EventRead:
		if e.Notification == nil || !e.Notification.Remote {
			return
		}
		if !b.channel.Send(wstypes.MarkRead(e.Notification.ID)) {
			b.logger.Debug("mark_read not forwarded", zap.String("notification_id", e.Notification.ID))
		}

	case notifsvc.EventReadAll:
		if !b.channel.Send(wstypes.MarkAllRead()) {
			b.logger.Debug("mark_all_read not forwarded")
		}
	}
}

func (b *Bridge) onChannelEvent(e realtime.ChannelEvent) {
	switch e.Type {
	case realtime.EventStateChanged:
		if e.State == realtime.StateConnected {
			b.channel.Send(wstypes.GetUnreadCount())
		}
	case realtime.EventReconnectExhausted:
		b.logger.Warn("push channel permanently disconnected", zap.Int("attempt", e.Attempt))
	}
}
