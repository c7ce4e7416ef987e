// internal/websocket/hub.go
package websocket

import (
	"context"
	"fmt"
	"sync"

	"notification-relay/internal/domain/notification"
	wstypes "notification-relay/internal/domain/websocket"
	notifsvc "notification-relay/internal/service/notification"

	"go.uber.org/zap"
)

// Orchestrator is what UI clients may read and drive.
type Orchestrator interface {
	State() notification.State
	Dismiss(id string, moveToHistory bool) (bool, error)
	MarkAsRead(id string) (bool, error)
	MarkAllAsRead() error
	TriggerAction(id string) (bool, error)
	DismissToast() (bool, error)
}

// Hub fans state snapshots and lifecycle events out to UI clients.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	// Registration/unregistration
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	orchestrator Orchestrator
	logger       *zap.Logger
}

func NewHub(orchestrator Orchestrator, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:      make(map[*Client]bool),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		done:         make(chan struct{}),
		orchestrator: orchestrator,
		logger:       logger.With(zap.String("component", "ui_hub")),
	}
}

// Register adds a client. The client receives the current snapshot first.
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Run serves registrations and broadcasts until ctx is done. It also stops
// when both streams are closed.
func (h *Hub) Run(ctx context.Context, states <-chan notification.State, events <-chan notifsvc.Event) {
	defer func() {
		close(h.done)
		h.shutdown()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case s, ok := <-states:
			if !ok {
				states = nil
				if events == nil {
					return
				}
				continue
			}
			h.broadcast(wstypes.NewMessage(wstypes.UIEventState, s))

		case e, ok := <-events:
			if !ok {
				events = nil
				if states == nil {
					return
				}
				continue
			}
			h.broadcast(wstypes.NewMessage(wstypes.UIEventNotice, e))
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("ui client connected",
		zap.String("client_id", client.id),
		zap.String("remote_addr", client.remoteAddr),
		zap.Int("total", total),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.UIEventState, h.orchestrator.State()))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	client.Close()

	h.logger.Info("ui client disconnected",
		zap.String("client_id", client.id),
		zap.Int("total", len(h.clients)),
	)
}

func (h *Hub) broadcast(msg *wstypes.WSMessage) {
	data, err := msg.ToJSON()
	if err != nil {
		h.logger.Error("failed to marshal broadcast", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.sendRaw(data)
	}
}

// HandleRequest applies a UI request to the orchestrator.
func (h *Hub) HandleRequest(req *wstypes.UIRequest) error {
	switch req.Type {
	case wstypes.UIEventMarkAllRead:
		return h.orchestrator.MarkAllAsRead()

	case wstypes.UIEventDismissToast:
		_, err := h.orchestrator.DismissToast()
		return err

	case wstypes.UIEventDismiss, wstypes.UIEventMarkRead, wstypes.UIEventAction:

	default:
		return fmt.Errorf("unsupported event type: %s", req.Type)
	}

	target, err := decodeTarget(req.Data)
	if err != nil {
		return fmt.Errorf("invalid %s request: %w", req.Type, err)
	}

	var found bool
	switch req.Type {
	case wstypes.UIEventDismiss:
		moveToHistory := target.MoveToHistory == nil || *target.MoveToHistory
		found, err = h.orchestrator.Dismiss(target.ID, moveToHistory)
	case wstypes.UIEventMarkRead:
		found, err = h.orchestrator.MarkAsRead(target.ID)
	case wstypes.UIEventAction:
		found, err = h.orchestrator.TriggerAction(target.ID)
	}

	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, target.ID)
	}
	return nil
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}
