// internal/handlers/notification/notification_handler.go
package notification

import (
	"net/http"

	"duka-service/internal/domain/notification"
	xerrors "duka-service/internal/pkg/errors"
	"duka-service/internal/pkg/response"
	service "duka-service/internal/service/notification"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	engine *service.Engine
}

func NewNotificationHandler(engine *service.Engine) *NotificationHandler {
	return &NotificationHandler{engine: engine}
}

// GetNotifications lists notifications, newest first. As a side effect it
// opportunistically triggers the rate-limited reconciliation scans, detached
// from this response.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	var filters notification.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query parameters", err)
		return
	}

	result, err := h.engine.GetNotifications(c.Request.Context(), &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to get notifications", err)
		return
	}

	h.engine.MaybeReconcile()

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"data":        result.Notifications,
		"unreadCount": result.UnreadCount,
		"totalCount":  result.TotalCount,
	})
}

// CreateNotification creates a notification directly; used by other services
// and admin tooling, never by the notification bell itself.
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	var req notification.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "type, title and message are required", err)
		return
	}

	result, err := h.engine.Create(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to create notification", err)
		return
	}

	response.Success(c, http.StatusCreated, "notification created", result)
}

// UpdateNotification sets the read flag on one notification, or on all of
// them when the body carries {"all": true}.
func (h *NotificationHandler) UpdateNotification(c *gin.Context) {
	var req notification.UpdateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err)
		return
	}

	if req.All {
		updated, err := h.engine.MarkAllRead(c.Request.Context())
		if err != nil {
			response.Error(c, http.StatusInternalServerError, "failed to mark all as read", err)
			return
		}
		response.Success(c, http.StatusOK, "all notifications marked as read", gin.H{
			"updated": updated,
		})
		return
	}

	if req.ID == "" || req.IsRead == nil {
		response.ValidationError(c, "_id and isRead are required", nil)
		return
	}

	result, err := h.engine.SetRead(c.Request.Context(), req.ID, *req.IsRead)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "notification not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to update notification", err)
		return
	}

	response.Success(c, http.StatusOK, "notification updated", result)
}

// DeleteNotification deletes one notification by ID.
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	var req notification.DeleteNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "_id is required", err)
		return
	}

	if err := h.engine.Delete(c.Request.Context(), req.ID); err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "notification not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to delete notification", err)
		return
	}

	response.Success(c, http.StatusOK, "notification deleted", nil)
}
