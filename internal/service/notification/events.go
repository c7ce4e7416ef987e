package notification

import (
	"time"

	"notification-relay/internal/domain/notification"
)

// EventType identifies a lifecycle event emitted by the orchestrator. Events
// replace per-notification callbacks: subscribers react to them instead.
type EventType string

const (
	EventAdmitted  EventType = "admitted"
	EventDismissed EventType = "dismissed"
	EventRead      EventType = "read"
	EventReadAll   EventType = "read_all"
	EventAction    EventType = "action"
	EventCleared   EventType = "cleared"
)

type DismissReason string

const (
	ReasonManual    DismissReason = "manual"
	ReasonTimeout   DismissReason = "timeout"
	ReasonEvicted   DismissReason = "evicted"
	ReasonDiscarded DismissReason = "discarded"
)

// Origin tells whether a change started locally or was echoed by the server.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

type Event struct {
	Type         EventType                  `json:"type"`
	Notification *notification.Notification `json:"notification,omitempty"`
	Reason       DismissReason              `json:"reason,omitempty"`
	Origin       Origin                     `json:"origin,omitempty"`
	At           time.Time                  `json:"at"`
}
