package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tvip/server/admin"
	"github.com/tvip/server/cache"
	"github.com/tvip/server/config"
	mw "github.com/tvip/server/middleware"
	"github.com/tvip/server/steam"
	"go.uber.org/zap"
)

// AuthHandler handles the Steam sign-in round trip and session endpoints.
type AuthHandler struct {
	auth        *steam.Authenticator
	reg         *admin.Registry
	cache       cache.Cache
	sec         config.SecurityConfig
	frontendURL string
	logger      *zap.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth *steam.Authenticator, reg *admin.Registry, c cache.Cache, sec config.SecurityConfig, frontendURL string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, reg: reg, cache: c, sec: sec, frontendURL: frontendURL, logger: logger}
}

// SteamLogin handles GET /auth/steam: redirect to the Steam sign-in page.
func (h *AuthHandler) SteamLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, h.auth.LoginURL())
}

// SteamReturn handles GET /auth/steam/return: verify the OpenID assertion,
// resolve the persona name, mint a session, and send the browser back to the
// frontend with the token in the URL fragment.
func (h *AuthHandler) SteamReturn(c *gin.Context) {
	steamID, err := h.auth.Verify(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		h.logger.Warn("steam login rejected", zap.Error(err))
		c.Redirect(http.StatusFound, h.frontendURL+"/#error=auth_failed")
		return
	}
	displayName := h.auth.FetchPersona(c.Request.Context(), steamID)

	token, err := mw.GenerateToken(steamID, displayName, h.sec.JWTSecret, h.sec.JWTTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.cache.Set(ctx, mw.SessionKey(token), steamID, h.sec.JWTTTL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session error"})
		return
	}

	h.logger.Info("steam login",
		zap.String("steam_id", steamID),
		zap.String("display_name", displayName),
	)
	c.Redirect(http.StatusFound, h.frontendURL+"/#token="+token)
}

// Me handles GET /api/me: the caller's identity as Steam reported it.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, steam.Identity{
		ID:          mw.GetSteamID(c),
		DisplayName: mw.GetDisplayName(c),
	})
}

// AdminStatus handles GET /api/isAdmin.
func (h *AuthHandler) AdminStatus(c *gin.Context) {
	isAdmin, err := h.reg.IsAdmin(c.Request.Context(), mw.GetSteamID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"isAdmin": isAdmin})
}

// Logout handles POST /api/auth/logout: drop the session so the token dies
// before its JWT expiry.
func (h *AuthHandler) Logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	tokenStr := strings.TrimPrefix(header, "Bearer ")
	if tokenStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Del(ctx, mw.SessionKey(tokenStr))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
