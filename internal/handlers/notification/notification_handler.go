// internal/handlers/notification/notification_handler.go
package notification

import (
	"net/http"
	"strconv"

	"notification-relay/internal/domain/notification"
	"notification-relay/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Orchestrator is the notification surface exposed over HTTP.
type Orchestrator interface {
	State() notification.State
	Show(opts notification.ShowOptions) (string, error)
	Dismiss(id string, moveToHistory bool) (bool, error)
	MarkAsRead(id string) (bool, error)
	MarkAllAsRead() error
	TriggerAction(id string) (bool, error)
	DismissToast() (bool, error)
	ClearAll(keepPersistent bool) error
	ClearHistory() error
}

type NotificationHandler struct {
	orchestrator Orchestrator
}

func NewNotificationHandler(orchestrator Orchestrator) *NotificationHandler {
	return &NotificationHandler{
		orchestrator: orchestrator,
	}
}

// GetState returns the current notification snapshot
func (h *NotificationHandler) GetState(c *gin.Context) {
	response.Success(c, http.StatusOK, "notification state retrieved", h.orchestrator.State())
}

// Show creates a notification
func (h *NotificationHandler) Show(c *gin.Context) {
	var opts notification.ShowOptions
	if err := c.ShouldBindJSON(&opts); err != nil {
		response.ValidationError(c, "invalid request body", err)
		return
	}

	id, err := h.orchestrator.Show(opts)
	if err != nil {
		writeError(c, "failed to show notification", err)
		return
	}

	response.Success(c, http.StatusAccepted, "notification queued", gin.H{"id": id})
}

// Dismiss removes a notification from active; ?history=false discards it
func (h *NotificationHandler) Dismiss(c *gin.Context) {
	moveToHistory, ok := boolQuery(c, "history", true)
	if !ok {
		return
	}

	found, err := h.orchestrator.Dismiss(c.Param("id"), moveToHistory)
	if err != nil {
		writeError(c, "failed to dismiss notification", err)
		return
	}
	if !found {
		response.NotFound(c, "notification not active")
		return
	}

	response.Success(c, http.StatusOK, "notification dismissed", nil)
}

// MarkAsRead marks a single notification as read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	found, err := h.orchestrator.MarkAsRead(c.Param("id"))
	if err != nil {
		writeError(c, "failed to mark notification as read", err)
		return
	}
	if !found {
		response.NotFound(c, "notification not found")
		return
	}

	response.Success(c, http.StatusOK, "notification marked as read", nil)
}

// MarkAllAsRead marks all notifications as read
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	if err := h.orchestrator.MarkAllAsRead(); err != nil {
		writeError(c, "failed to mark all as read", err)
		return
	}

	response.Success(c, http.StatusOK, "all notifications marked as read", nil)
}

// TriggerAction fires the action of a notification
func (h *NotificationHandler) TriggerAction(c *gin.Context) {
	found, err := h.orchestrator.TriggerAction(c.Param("id"))
	if err != nil {
		writeError(c, "failed to trigger action", err)
		return
	}
	if !found {
		response.NotFound(c, "notification not found")
		return
	}

	response.Success(c, http.StatusOK, "action triggered", nil)
}

// DismissToast clears the current toast
func (h *NotificationHandler) DismissToast(c *gin.Context) {
	cleared, err := h.orchestrator.DismissToast()
	if err != nil {
		writeError(c, "failed to dismiss toast", err)
		return
	}

	response.Success(c, http.StatusOK, "toast dismissed", gin.H{"cleared": cleared})
}

// ClearAll resets the state; ?keep_persistent=false drops persistent ones too
func (h *NotificationHandler) ClearAll(c *gin.Context) {
	keep, ok := boolQuery(c, "keep_persistent", true)
	if !ok {
		return
	}

	if err := h.orchestrator.ClearAll(keep); err != nil {
		writeError(c, "failed to clear notifications", err)
		return
	}

	response.Success(c, http.StatusOK, "notifications cleared", nil)
}

// ClearHistory empties the history
func (h *NotificationHandler) ClearHistory(c *gin.Context) {
	if err := h.orchestrator.ClearHistory(); err != nil {
		writeError(c, "failed to clear history", err)
		return
	}

	response.Success(c, http.StatusOK, "history cleared", nil)
}

func boolQuery(c *gin.Context, key string, fallback bool) (bool, bool) {
	raw, present := c.GetQuery(key)
	if !present {
		return fallback, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		response.ValidationError(c, "invalid "+key+" parameter", err)
		return false, false
	}
	return v, true
}

func writeError(c *gin.Context, message string, err error) {
	response.FromError(c, message, err)
}
