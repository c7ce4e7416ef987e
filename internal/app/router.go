// internal/app/router.go
package app

import (
	notifyHandler "notification-relay/internal/handlers/notification"
	realtimeHandler "notification-relay/internal/handlers/realtime"
	wsHandler "notification-relay/internal/handlers/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	NotifHandler    *notifyHandler.NotificationHandler
	RealtimeHandler *realtimeHandler.RealtimeHandler
	WSHandler       *wsHandler.WebSocketHandler
	APIAuth         gin.HandlerFunc
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	protected := api.Group("")
	if h.APIAuth != nil {
		protected.Use(h.APIAuth)
	}

	// ==================== Notifications ====================
	notifications := protected.Group("/notifications")
	{
		notifications.GET("/state", h.NotifHandler.GetState)
		notifications.POST("", h.NotifHandler.Show)
		notifications.POST("/read-all", h.NotifHandler.MarkAllAsRead)
		notifications.POST("/toast/dismiss", h.NotifHandler.DismissToast)
		notifications.DELETE("", h.NotifHandler.ClearAll)
		notifications.DELETE("/history", h.NotifHandler.ClearHistory)
		notifications.POST("/:id/dismiss", h.NotifHandler.Dismiss)
		notifications.POST("/:id/read", h.NotifHandler.MarkAsRead)
		notifications.POST("/:id/action", h.NotifHandler.TriggerAction)
	}

	// ==================== Realtime Channel ====================
	rt := protected.Group("/realtime")
	{
		rt.GET("/status", h.RealtimeHandler.GetStatus)
		rt.POST("/connect", h.RealtimeHandler.Connect)
		rt.POST("/disconnect", h.RealtimeHandler.Disconnect)
		rt.POST("/send", h.RealtimeHandler.Send)
	}

	protected.GET("/ws/stats", h.WSHandler.GetStats)

	logger.Info("routes registered", zap.Int("count", len(r.Routes())))
}
