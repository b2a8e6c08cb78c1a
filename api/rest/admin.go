package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tvip/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminHandler serves operator-facing metrics. Routes must be mounted behind
// Auth + RequireAdmin (and optionally IPWhitelist).
type AdminHandler struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(db *gorm.DB, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, logger: logger}
}

// Metrics handles GET /api/admin/metrics: grant and audit counts.
func (h *AdminHandler) Metrics(c *gin.Context) {
	ctx := c.Request.Context()
	now := time.Now()

	var active, total, auditRows, admins int64
	for _, q := range []struct {
		out   *int64
		query *gorm.DB
	}{
		{&active, h.db.WithContext(ctx).Model(&model.VipGrant{}).Where("expires_at > ?", now)},
		{&total, h.db.WithContext(ctx).Model(&model.VipGrant{})},
		{&auditRows, h.db.WithContext(ctx).Model(&model.AuditLog{})},
		{&admins, h.db.WithContext(ctx).Model(&model.AdminEntry{})},
	} {
		if err := q.query.Count(q.out).Error; err != nil {
			h.logger.Error("metrics query failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"active_vips":  active,
		"total_vips":   total,
		"audit_rows":   auditRows,
		"admins":       admins,
		"generated_at": now,
	})
}
