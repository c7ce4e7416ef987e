package realtime

import "errors"

var (
	ErrAuthUnavailable = errors.New("auth token unavailable")
	ErrNotConnected    = errors.New("realtime channel not connected")
	ErrConnection      = errors.New("realtime connection failed")
	ErrClosed          = errors.New("realtime channel closed")
)
