package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	mw "github.com/tvip/server/middleware"
	"github.com/tvip/server/vip"
	"gorm.io/gorm"
)

// VipHandler exposes the VIP lifecycle over REST. Mutating routes must be
// mounted behind Auth + RequireAdmin; listing is public.
type VipHandler struct {
	svc *vip.Service
}

// NewVipHandler creates a VipHandler.
func NewVipHandler(svc *vip.Service) *VipHandler {
	return &VipHandler{svc: svc}
}

// List handles GET /api/vips: all currently active grants.
func (h *VipHandler) List(c *gin.Context) {
	grants, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, grants)
}

type grantRequest struct {
	PlayerID     string `json:"player_id" binding:"required,max=32"`
	PlayerName   string `json:"player_name" binding:"required,max=64"`
	Duration     int    `json:"duration" binding:"required"`
	DurationUnit string `json:"duration_unit" binding:"required"`
}

// Create handles POST /api/vips. Regranting an existing player replaces the
// window rather than erroring.
func (h *VipHandler) Create(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	unit, err := vip.ParseUnit(req.DurationUnit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.svc.Grant(c.Request.Context(), vip.GrantRequest{
		PlayerID:   req.PlayerID,
		PlayerName: req.PlayerName,
		AdminID:    mw.GetSteamID(c),
		AdminName:  mw.GetDisplayName(c),
		Duration:   req.Duration,
		Unit:       unit,
		TraceID:    mw.GetTraceID(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type extendRequest struct {
	Duration     int    `json:"duration" binding:"required"`
	DurationUnit string `json:"duration_unit" binding:"required"`
}

// Extend handles PUT /api/vips/:playerid/extend. The new expiry is relative
// to the stored one, so extending an expired grant revives it.
func (h *VipHandler) Extend(c *gin.Context) {
	var req extendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	unit, err := vip.ParseUnit(req.DurationUnit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.svc.Extend(c.Request.Context(), vip.ExtendRequest{
		PlayerID:  c.Param("playerid"),
		Duration:  req.Duration,
		Unit:      unit,
		AdminID:   mw.GetSteamID(c),
		AdminName: mw.GetDisplayName(c),
		TraceID:   mw.GetTraceID(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type updateRequest struct {
	PlayerName string    `json:"player_name" binding:"required,max=64"`
	ExpiresAt  time.Time `json:"expires_at" binding:"required"`
}

// Update handles PUT /api/vips/:playerid: absolute overwrite of name and
// expiry.
func (h *VipHandler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.svc.Update(c.Request.Context(), vip.UpdateRequest{
		PlayerID:   c.Param("playerid"),
		PlayerName: req.PlayerName,
		ExpiresAt:  req.ExpiresAt,
		AdminID:    mw.GetSteamID(c),
		AdminName:  mw.GetDisplayName(c),
		TraceID:    mw.GetTraceID(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete handles DELETE /api/vips/:playerid. Deleting a player with no grant
// still succeeds.
func (h *VipHandler) Delete(c *gin.Context) {
	err := h.svc.Revoke(c.Request.Context(), vip.RevokeRequest{
		PlayerID:  c.Param("playerid"),
		AdminID:   mw.GetSteamID(c),
		AdminName: mw.GetDisplayName(c),
		TraceID:   mw.GetTraceID(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// writeServiceError maps lifecycle errors onto HTTP statuses.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, vip.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no grant for player"})
	case errors.Is(err, vip.ErrInvalidDuration),
		errors.Is(err, vip.ErrInvalidUnit),
		errors.Is(err, vip.ErrInvalidExpiry):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
