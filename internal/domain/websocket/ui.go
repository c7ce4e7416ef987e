package websocket

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// UI event types exchanged with local UI clients on /ws.
const (
	// Hub -> UI
	UIEventState  EventType = "state"
	UIEventNotice EventType = "event"
	UIEventError  EventType = "error"
	UIEventPong   EventType = "pong"

	// UI -> hub
	UIEventPing         EventType = "ping"
	UIEventDismiss      EventType = "dismiss"
	UIEventMarkRead     EventType = "mark_read"
	UIEventMarkAllRead  EventType = "mark_all_read"
	UIEventAction       EventType = "action"
	UIEventDismissToast EventType = "dismiss_toast"
)

// WSMessage is the frame format used with UI clients.
type WSMessage struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	ID        string      `json:"id,omitempty"`
}

// UIRequest is what UI clients send.
type UIRequest struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UITarget addresses a notification in a UI request.
type UITarget struct {
	ID            string `json:"id"`
	MoveToHistory *bool  `json:"move_to_history,omitempty"`
}

// Helper to create messages
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
		ID:        ulid.Make().String(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseUIRequest(data []byte) (*UIRequest, error) {
	var req UIRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	if req.Type == "" {
		return nil, ErrMalformedMessage
	}
	return &req, nil
}
