package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tvip/server/cache"
	"github.com/tvip/server/config"
)

const (
	SteamIDKey     = "steam_id"
	DisplayNameKey = "display_name"
)

// Auth validates the Bearer JWT and checks that the session is still live in
// the cache (logout kills the session before the token expires).
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		exists, err := c.Exists(cacheCtx, SessionKey(tokenStr))
		if err != nil || !exists {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		ctx.Set(SteamIDKey, claims.SteamID)
		ctx.Set(DisplayNameKey, claims.DisplayName)
		ctx.Next()
	}
}

// SessionKey builds the cache key under which a token's session lives.
func SessionKey(token string) string { return "session:" + token }

// GetSteamID retrieves the authenticated Steam ID from the Gin context.
// Empty means unauthenticated.
func GetSteamID(c *gin.Context) string {
	if v, exists := c.Get(SteamIDKey); exists {
		return v.(string)
	}
	return ""
}

// GetDisplayName retrieves the authenticated display name from the Gin context.
func GetDisplayName(c *gin.Context) string {
	if v, exists := c.Get(DisplayNameKey); exists {
		return v.(string)
	}
	return ""
}
