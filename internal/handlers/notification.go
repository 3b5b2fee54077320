package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/models"
	"marketplace-chat/internal/notifications"
	"marketplace-chat/internal/telemetry"
)

// NotificationHandler serves the caller's notification inbox and the admin
// send endpoint.
type NotificationHandler struct {
	dispatcher *notifications.Dispatcher
	audit      *telemetry.AuditEmitter
}

// NewNotificationHandler builds a NotificationHandler. audit may be nil.
func NewNotificationHandler(dispatcher *notifications.Dispatcher, audit *telemetry.AuditEmitter) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher, audit: audit}
}

// ListNotifications returns the caller's notifications, newest first.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}

	userID, _ := currentUser(c)
	list, err := h.dispatcher.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err, "failed to load notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, _ := currentUser(c)
	count, err := h.dispatcher.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to count notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notificationID, ok := parseIDParam(c, "notification_id", "notification id")
	if !ok {
		return
	}

	userID, _ := currentUser(c)
	if err := h.dispatcher.MarkRead(c.Request.Context(), notificationID, userID); err != nil {
		respondError(c, err, "failed to mark notification read")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, _ := currentUser(c)
	updated, err := h.dispatcher.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to mark notifications read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// SendNotification lets an admin send any catalog notification to a user.
func (h *NotificationHandler) SendNotification(c *gin.Context) {
	var req struct {
		UserID int64                   `json:"user_id" binding:"required"`
		Type   models.NotificationType `json:"type" binding:"required"`
		Data   map[string]string       `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := h.dispatcher.Create(c.Request.Context(), req.UserID, req.Type, req.Data)
	if err != nil {
		respondError(c, err, "failed to send notification")
		return
	}

	auditAction(c, h.audit, "notification.sent", map[string]string{
		"notification_id": idAttr(n.ID),
		"recipient_id":    idAttr(req.UserID),
		"type":            string(req.Type),
	})
	c.JSON(http.StatusCreated, n)
}
