package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"invoxtract/internal/domain"
)

const (
	HeaderUserID     = "X-User-ID"
	ContextKeyUserID = "user_id"
)

// RequireUser reads the caller's identifier from the X-User-ID header and
// injects it into the context. Authentication happens upstream of this service.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   gin.H{"code": "MISSING_USER_ID", "message": "X-User-ID header is required"},
			})
			return
		}
		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

// GetUserID extracts the user ID from the Gin context.
func GetUserID(c *gin.Context) (string, error) {
	val, exists := c.Get(ContextKeyUserID)
	if !exists {
		return "", domain.ErrMissingUserID
	}
	id, ok := val.(string)
	if !ok || id == "" {
		return "", domain.ErrMissingUserID
	}
	return id, nil
}
