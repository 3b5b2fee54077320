package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"marketplace-chat/internal/logging"
	"marketplace-chat/internal/observability"
)

const RequestIDKey = "request_id"

// RequestID reuses the caller's X-Request-Id or mints one, echoes it back
// and makes it available to logging.Ctx.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := observability.RequestIDFromRequest(c.Request)
		if id == "" {
			id = logging.NewRequestID()
		}
		c.Set(RequestIDKey, id)
		c.Header(observability.HeaderRequestID, id)
		c.Request = c.Request.WithContext(logging.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// RequestLogger writes one line per request once the handler chain returns.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		ev := logging.Ctx(c.Request.Context()).Info()
		if status >= 500 {
			ev = logging.Ctx(c.Request.Context()).Error()
		}
		ev.Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("http request")
	}
}
