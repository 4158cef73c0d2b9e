package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ModPasswordHeader carries the shared moderator secret on privileged
// requests. Its value is masked by RedactingLogger.
const ModPasswordHeader = "X-Mod-Pwd"

// ModeratorAuth gates a route group behind the shared moderator secret.
// The comparison is constant-time. An empty secret locks the group down
// entirely rather than leaving it open.
func ModeratorAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(ModPasswordHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "unauthorized",
				"message":    "invalid moderator credential",
			})
			return
		}
		// Moderator traffic is trusted; don't throttle queue operations.
		MarkRateBypass(c)
		c.Next()
	}
}
