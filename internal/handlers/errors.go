package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/logging"
	"marketplace-chat/internal/notifications"
	"marketplace-chat/internal/repositories"
	"marketplace-chat/internal/services"
)

// respondError maps domain errors to a status code and a JSON error body.
func respondError(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	message := fallback

	switch {
	case errors.Is(err, services.ErrNotParticipant):
		status, message = http.StatusForbidden, "not a conversation participant"
	case errors.Is(err, services.ErrForbidden):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, repositories.ErrConversationNotFound):
		status, message = http.StatusNotFound, "conversation not found"
	case errors.Is(err, repositories.ErrMessageNotFound):
		status, message = http.StatusNotFound, "message not found"
	case errors.Is(err, repositories.ErrNotificationNotFound):
		status, message = http.StatusNotFound, "notification not found"
	case errors.Is(err, services.ErrInvalidMessage),
		errors.Is(err, services.ErrInvalidParticipants),
		errors.Is(err, notifications.ErrInvalidType),
		errors.Is(err, notifications.ErrInvalidRecipient):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrConcurrentUpdateConflict):
		status, message = http.StatusConflict, err.Error()
	}

	if status >= http.StatusInternalServerError {
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("route", c.FullPath()).Msg(fallback)
	}
	c.JSON(status, gin.H{"error": message})
}

func parseIDParam(c *gin.Context, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + label})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}
