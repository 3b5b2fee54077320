package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/logging"
	"marketplace-chat/internal/middleware"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/observability"
	"marketplace-chat/internal/telemetry"
)

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(middleware.RequestIDKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	if requestID == "" {
		requestID = logging.NewRequestID()
	}
	c.Set(middleware.RequestIDKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *int64 {
	if userID := c.GetInt64(middleware.UserIDKey); userID != 0 {
		return &userID
	}
	return nil
}

// currentUser returns the authenticated caller. AuthMiddleware guarantees it
// on every route that uses these handlers.
func currentUser(c *gin.Context) (int64, models.Actor) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		userID := c.GetInt64(middleware.UserIDKey)
		return userID, models.User{ID: userID, Active: true}
	}
	return actor.ActorID(), actor
}

func auditAction(c *gin.Context, emitter *telemetry.AuditEmitter, action string, attrs map[string]string) {
	userID := c.GetInt64(middleware.UserIDKey)
	emitter.Action(c.Request.Context(), action, requestIDFromContext(c), userID, attrs)
}

func idAttr(v int64) string {
	return strconv.FormatInt(v, 10)
}
