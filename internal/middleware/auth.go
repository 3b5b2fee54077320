package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/auth"
	"marketplace-chat/internal/logging"
	"marketplace-chat/internal/models"
)

const (
	UserIDKey = "userID"
	ActorKey  = "actor"
)

// AuthMiddleware validates the bearer token and stores the caller's id and
// actor on the gin context.
func AuthMiddleware(tokens auth.TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(ActorKey, claims.Actor())
		c.Request = c.Request.WithContext(logging.ContextWithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

// RequireActive rejects suspended or deactivated accounts.
func RequireActive() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok || !actor.IsActive() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account is not active"})
			return
		}
		c.Next()
	}
}

// RequireAdmin lets only moderator accounts through.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok || !actor.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

// ActorFrom returns the actor set by AuthMiddleware.
func ActorFrom(c *gin.Context) (models.Actor, bool) {
	val, ok := c.Get(ActorKey)
	if !ok {
		return nil, false
	}
	actor, ok := val.(models.Actor)
	return actor, ok
}
