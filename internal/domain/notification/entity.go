// internal/domain/notification/entity.go
package notification

import (
	"time"

	xerrors "notification-relay/internal/pkg/errors"
)

type NotificationType string

const (
	TypeInfo    NotificationType = "info"
	TypeSuccess NotificationType = "success"
	TypeWarning NotificationType = "warning"
	TypeError   NotificationType = "error"
	TypeCustom  NotificationType = "custom"
)

func (t NotificationType) Valid() bool {
	switch t {
	case TypeInfo, TypeSuccess, TypeWarning, TypeError, TypeCustom:
		return true
	}
	return false
}

type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type Position string

const (
	PositionTopRight     Position = "topRight"
	PositionTopLeft      Position = "topLeft"
	PositionTopCenter    Position = "topCenter"
	PositionBottomRight  Position = "bottomRight"
	PositionBottomLeft   Position = "bottomLeft"
	PositionBottomCenter Position = "bottomCenter"
)

func (p Position) Valid() bool {
	switch p {
	case PositionTopRight, PositionTopLeft, PositionTopCenter,
		PositionBottomRight, PositionBottomLeft, PositionBottomCenter:
		return true
	}
	return false
}

// Notification is an immutable value; lifecycle changes produce new copies.
type Notification struct {
	ID           string                 `json:"id"`
	Title        string                 `json:"title"`
	Message      string                 `json:"message,omitempty"`
	Type         NotificationType       `json:"type"`
	Priority     Priority               `json:"priority"`
	Position     Position               `json:"position"`
	DurationMs   int64                  `json:"duration_ms"`
	Persistent   bool                   `json:"persistent"`
	ActionLabel  string                 `json:"action_label,omitempty"`
	Icon         string                 `json:"icon,omitempty"`
	AvatarURL    string                 `json:"avatar_url,omitempty"`
	ImageURL     string                 `json:"image_url,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	IsRead       bool                   `json:"is_read"`
	ShowAsToast  bool                   `json:"show_as_toast"`
	ShowInCenter bool                   `json:"show_in_center"`

	// Remote is set for notifications pushed by the server; their IDs are
	// server-assigned and read state is synced back.
	Remote bool `json:"remote"`
}

// Duration returns the auto-dismiss delay. Zero means no timer.
func (n Notification) Duration() time.Duration {
	return time.Duration(n.DurationMs) * time.Millisecond
}

// AutoDismiss reports whether a dismiss timer should be started on admission.
func (n Notification) AutoDismiss() bool {
	return !n.Persistent && n.DurationMs > 0
}

// ShowOptions are the caller-facing options of Show. Pointer fields
// distinguish "omitted" from an explicit zero value.
type ShowOptions struct {
	Title        string                 `json:"title" binding:"required"`
	Message      string                 `json:"message,omitempty"`
	Type         NotificationType       `json:"type,omitempty"`
	Priority     Priority               `json:"priority,omitempty"`
	Position     Position               `json:"position,omitempty"`
	DurationMs   *int64                 `json:"duration_ms,omitempty"`
	Persistent   bool                   `json:"persistent,omitempty"`
	ActionLabel  string                 `json:"action_label,omitempty"`
	Icon         string                 `json:"icon,omitempty"`
	AvatarURL    string                 `json:"avatar_url,omitempty"`
	ImageURL     string                 `json:"image_url,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	ShowInCenter *bool                  `json:"show_in_center,omitempty"`
	ShowAsToast  *bool                  `json:"show_as_toast,omitempty"`
}

// Build validates the options and produces a notification with the given id.
func (o ShowOptions) Build(id string, now time.Time) (Notification, error) {
	if o.Title == "" {
		return Notification{}, xerrors.Invalid("title is required")
	}

	n := Notification{
		ID:           id,
		Title:        o.Title,
		Message:      o.Message,
		Type:         o.Type,
		Priority:     o.Priority,
		Position:     o.Position,
		Persistent:   o.Persistent,
		ActionLabel:  o.ActionLabel,
		Icon:         o.Icon,
		AvatarURL:    o.AvatarURL,
		ImageURL:     o.ImageURL,
		Metadata:     o.Metadata,
		CreatedAt:    now,
		ShowAsToast:  boolOr(o.ShowAsToast, true),
		ShowInCenter: boolOr(o.ShowInCenter, true),
	}

	if n.Type == "" {
		n.Type = TypeInfo
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	if n.Position == "" {
		n.Position = PositionTopRight
	}

	if !n.Type.Valid() {
		return Notification{}, xerrors.Invalid("unknown type %q", n.Type)
	}
	if !n.Priority.Valid() {
		return Notification{}, xerrors.Invalid("unknown priority %q", n.Priority)
	}
	if !n.Position.Valid() {
		return Notification{}, xerrors.Invalid("unknown position %q", n.Position)
	}

	switch {
	case n.Priority == PriorityCritical:
		n.DurationMs = 0
	case o.DurationMs != nil:
		if *o.DurationMs < 0 {
			return Notification{}, xerrors.Invalid("duration_ms must not be negative")
		}
		n.DurationMs = *o.DurationMs
	default:
		n.DurationMs = DefaultDurationMs(n.Priority, n.Type)
	}

	return n, nil
}

// Normalize fills defaults on a notification received from the server.
// Unknown enum values are coerced rather than rejected so one odd payload
// does not get dropped. hasDuration tells whether the server sent a duration.
func Normalize(n Notification, hasDuration bool, now time.Time) Notification {
	if !n.Type.Valid() {
		if n.Type == "" {
			n.Type = TypeInfo
		} else {
			n.Type = TypeCustom
		}
	}
	if !n.Priority.Valid() {
		n.Priority = PriorityNormal
	}
	if !n.Position.Valid() {
		n.Position = PositionTopRight
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.DurationMs < 0 {
		hasDuration = false
	}

	switch {
	case n.Priority == PriorityCritical:
		n.DurationMs = 0
	case !hasDuration:
		n.DurationMs = DefaultDurationMs(n.Priority, n.Type)
	}

	return n
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
