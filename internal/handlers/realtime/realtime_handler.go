// internal/handlers/realtime/realtime_handler.go
package realtime

import (
	"context"
	"errors"
	"io"
	"net/http"

	wstypes "notification-relay/internal/domain/websocket"
	"notification-relay/internal/pkg/response"
	"notification-relay/internal/realtime"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Channel is the realtime surface exposed over HTTP.
type Channel interface {
	Status() realtime.Status
	Connect(ctx context.Context) error
	Disconnect()
	Send(msg any) bool
}

type RealtimeHandler struct {
	channel Channel
	logger  *zap.Logger
}

func NewRealtimeHandler(channel Channel, logger *zap.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		channel: channel,
		logger:  logger,
	}
}

// GetStatus returns the connection state
func (h *RealtimeHandler) GetStatus(c *gin.Context) {
	response.Success(c, http.StatusOK, "realtime status", h.channel.Status())
}

// Connect opens the push connection if it is not already open
func (h *RealtimeHandler) Connect(c *gin.Context) {
	err := h.channel.Connect(c.Request.Context())
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, "realtime connected", h.channel.Status())
	case errors.Is(err, realtime.ErrAuthUnavailable):
		response.Error(c, http.StatusUnauthorized, "no auth token available", err)
	case errors.Is(err, realtime.ErrConnection):
		// A retry is already scheduled.
		response.Error(c, http.StatusBadGateway, "push server unreachable", err, h.channel.Status())
	default:
		h.logger.Error("realtime connect failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to connect", err)
	}
}

// Disconnect closes the push connection without reconnecting
func (h *RealtimeHandler) Disconnect(c *gin.Context) {
	h.channel.Disconnect()
	response.Success(c, http.StatusOK, "realtime disconnected", h.channel.Status())
}

// Send forwards a control frame to the push server
func (h *RealtimeHandler) Send(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 64*1024))
	if err != nil {
		response.ValidationError(c, "failed to read body", err)
		return
	}

	frame, err := wstypes.ParseControlFrame(body)
	if err != nil {
		response.ValidationError(c, "invalid control frame", err)
		return
	}

	if !h.channel.Send(frame) {
		response.Error(c, http.StatusConflict, "realtime channel not connected", realtime.ErrNotConnected)
		return
	}

	response.Success(c, http.StatusAccepted, "frame queued", frame)
}
