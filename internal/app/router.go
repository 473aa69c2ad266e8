// internal/app/router.go
package app

import (
	cacheHandler "duka-service/internal/handlers/cache"
	notifyHandler "duka-service/internal/handlers/notification"
	"duka-service/internal/middleware"
	"duka-service/internal/ws"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	NotifHandler *notifyHandler.NotificationHandler
	CacheHandler *cacheHandler.CacheHandler
	Hub          *ws.Hub
	CacheAPIKey  string
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", func(c *gin.Context) {
		if err := h.Hub.Serve(c.Writer, c.Request); err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
		}
	})

	// ==================== Notifications ====================
	notifications := api.Group("/notifications")
	{
		notifications.GET("", h.NotifHandler.GetNotifications)
		notifications.POST("", h.NotifHandler.CreateNotification)
		notifications.PUT("", h.NotifHandler.UpdateNotification)
		notifications.DELETE("", h.NotifHandler.DeleteNotification)
	}

	// ==================== Cache Admin ====================
	cacheAdmin := api.Group("/cache")
	cacheAdmin.Use(middleware.BearerAuth(h.CacheAPIKey))
	{
		cacheAdmin.GET("", h.CacheHandler.GetStats)
		cacheAdmin.DELETE("", h.CacheHandler.Invalidate)
	}
}
