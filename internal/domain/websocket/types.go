// internal/domain/websocket/types.go
package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notification-relay/internal/domain/notification"
)

// EventType is the "type" discriminator of every frame.
type EventType string

const (
	// Server -> client
	EventTypeNotification         EventType = "notification"
	EventTypeHeartbeat            EventType = "heartbeat"
	EventTypePong                 EventType = "pong"
	EventTypeUnreadCount          EventType = "unread_count"
	EventTypeNotificationRead     EventType = "notification_read"
	EventTypeNotificationArchived EventType = "notification_archived"
	EventTypeError                EventType = "error"

	// Client -> server
	EventTypePing           EventType = "ping"
	EventTypeMarkRead       EventType = "mark_read"
	EventTypeMarkAllRead    EventType = "mark_all_read"
	EventTypeGetUnreadCount EventType = "get_unread_count"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrEmptyData        = errors.New("message has no data")
)

// Envelope is the inbound frame format.
type Envelope struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// ParseEnvelope decodes a raw frame. A frame without a type is malformed.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	}
	return &env, nil
}

// Decode unmarshals the data payload into target.
func (e *Envelope) Decode(target interface{}) error {
	if len(e.Data) == 0 || bytes.Equal(e.Data, []byte("null")) {
		return ErrEmptyData
	}
	if err := json.Unmarshal(e.Data, target); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformedMessage, e.Type, err)
	}
	return nil
}

// ID accepts both JSON strings and numbers; servers differ on id encoding.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// NotificationData is the payload of a "notification" frame.
type NotificationData struct {
	ID           ID                     `json:"id"`
	Title        string                 `json:"title"`
	Message      string                 `json:"message,omitempty"`
	Type         string                 `json:"type,omitempty"`
	Priority     string                 `json:"priority,omitempty"`
	Position     string                 `json:"position,omitempty"`
	DurationMs   *int64                 `json:"duration_ms,omitempty"`
	Persistent   bool                   `json:"persistent,omitempty"`
	ActionLabel  string                 `json:"action_label,omitempty"`
	Icon         string                 `json:"icon,omitempty"`
	AvatarURL    string                 `json:"avatar_url,omitempty"`
	ImageURL     string                 `json:"image_url,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    *time.Time             `json:"created_at,omitempty"`
	IsRead       bool                   `json:"is_read,omitempty"`
	ShowAsToast  *bool                  `json:"show_as_toast,omitempty"`
	ShowInCenter *bool                  `json:"show_in_center,omitempty"`
}

// ToNotification converts the payload, keeping the server-assigned id.
func (d NotificationData) ToNotification(now time.Time) (notification.Notification, error) {
	if d.ID == "" {
		return notification.Notification{}, fmt.Errorf("%w: notification without id", ErrMalformedMessage)
	}
	if d.Title == "" {
		return notification.Notification{}, fmt.Errorf("%w: notification %s without title", ErrMalformedMessage, d.ID)
	}

	n := notification.Notification{
		ID:           string(d.ID),
		Title:        d.Title,
		Message:      d.Message,
		Type:         notification.NotificationType(d.Type),
		Priority:     notification.Priority(d.Priority),
		Position:     notification.Position(d.Position),
		Persistent:   d.Persistent,
		ActionLabel:  d.ActionLabel,
		Icon:         d.Icon,
		AvatarURL:    d.AvatarURL,
		ImageURL:     d.ImageURL,
		Metadata:     d.Metadata,
		IsRead:       d.IsRead,
		ShowAsToast:  d.ShowAsToast == nil || *d.ShowAsToast,
		ShowInCenter: d.ShowInCenter == nil || *d.ShowInCenter,
		Remote:       true,
	}
	if d.DurationMs != nil {
		n.DurationMs = *d.DurationMs
	}
	if d.CreatedAt != nil {
		n.CreatedAt = *d.CreatedAt
	}

	return notification.Normalize(n, d.DurationMs != nil, now), nil
}

// NotificationRef identifies a notification in read/archived echoes.
type NotificationRef struct {
	NotificationID ID `json:"notification_id"`
	ID             ID `json:"id"`
}

func (r NotificationRef) Value() string {
	if r.NotificationID != "" {
		return string(r.NotificationID)
	}
	return string(r.ID)
}

// UnreadCountData carries the authoritative unread count.
type UnreadCountData struct {
	UnreadCount *int `json:"unread_count"`
	Count       *int `json:"count"`
}

func (d UnreadCountData) Value() (int, bool) {
	switch {
	case d.UnreadCount != nil:
		return *d.UnreadCount, true
	case d.Count != nil:
		return *d.Count, true
	}
	return 0, false
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ControlFrame is an outbound frame to the server.
type ControlFrame struct {
	Type           EventType `json:"type"`
	NotificationID string    `json:"notification_id,omitempty"`
}

func Ping() ControlFrame           { return ControlFrame{Type: EventTypePing} }
func MarkAllRead() ControlFrame    { return ControlFrame{Type: EventTypeMarkAllRead} }
func GetUnreadCount() ControlFrame { return ControlFrame{Type: EventTypeGetUnreadCount} }

func MarkRead(id string) ControlFrame {
	return ControlFrame{Type: EventTypeMarkRead, NotificationID: id}
}

// Validate checks the frame is one the server understands.
func (f ControlFrame) Validate() error {
	switch f.Type {
	case EventTypePing, EventTypeMarkAllRead, EventTypeGetUnreadCount:
		return nil
	case EventTypeMarkRead:
		if f.NotificationID == "" {
			return fmt.Errorf("%w: mark_read requires notification_id", ErrMalformedMessage)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown control frame type %q", ErrMalformedMessage, f.Type)
}

func (f ControlFrame) ToJSON() ([]byte, error) {
	return json.Marshal(f)
}

// ParseControlFrame decodes and validates an outbound frame. Numeric ids are
// accepted and kept in their decimal form.
func ParseControlFrame(data []byte) (ControlFrame, error) {
	var raw struct {
		Type           EventType `json:"type"`
		NotificationID ID        `json:"notification_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return ControlFrame{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	f := ControlFrame{Type: raw.Type, NotificationID: string(raw.NotificationID)}
	if err := f.Validate(); err != nil {
		return ControlFrame{}, err
	}
	return f, nil
}

// FormatTimestamp renders the envelope timestamp format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
