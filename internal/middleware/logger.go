package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID injects an X-Request-ID header into the request and response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Logger logs one line per request. The caller is read after the handler
// chain runs so RequireUser on a route group is reflected; "-" means none.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		requestID := c.GetString("request_id")
		userID := c.GetString(ContextKeyUserID)
		if userID == "" {
			userID = "-"
		}
		log.Printf("[%s] user=%s %s %s %d %s %dB",
			requestID,
			userID,
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			latency,
			max(c.Writer.Size(), 0),
		)
	}
}

// Recovery recovers from panics and returns a 500 error.
func Recovery() gin.HandlerFunc {
	return gin.Recovery()
}
