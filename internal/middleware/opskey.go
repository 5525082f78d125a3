package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
)

// OpsKeyMiddleware guards the operational trim endpoints with a shared
// bearer key. This is service-to-service auth, not user auth.
type OpsKeyMiddleware struct {
	log *logger.Logger
	key string
}

func NewOpsKeyMiddleware(key string, log *logger.Logger) *OpsKeyMiddleware {
	return &OpsKeyMiddleware{log: log.With("Middleware", "OpsKeyMiddleware"), key: key}
}

func (m *OpsKeyMiddleware) RequireOpsKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.key == "" {
			m.log.Error("Ops key not configured, rejecting request", "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "ops key not configured"})
			return
		}
		header := c.GetHeader("Authorization")
		if len(header) <= 7 || !strings.EqualFold(header[:7], "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		provided := header[7:]
		if subtle.ConstantTimeCompare([]byte(provided), []byte(m.key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
