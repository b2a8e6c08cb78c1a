package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tvip/server/admin"
	"go.uber.org/zap"
)

// RequireAdmin gates mutating endpoints on admin membership. It must run
// after Auth. The registry is queried on every request: elevation and
// de-elevation take effect immediately, not at next login.
func RequireAdmin(reg *admin.Registry, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		steamID := GetSteamID(c)
		if steamID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		ok, err := reg.IsAdmin(c.Request.Context(), steamID)
		if err != nil {
			logger.Error("admin check failed",
				zap.String("steam_id", steamID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not authorized"})
			return
		}
		c.Next()
	}
}
