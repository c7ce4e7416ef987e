// internal/websocket/errors.go
package websocket

import "errors"

var (
	ErrHubStopped    = errors.New("websocket hub stopped")
	ErrUnknownTarget = errors.New("notification not found")
	ErrSlowClient    = errors.New("client send buffer full")
)
