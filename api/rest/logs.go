package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tvip/server/admin"
	"github.com/tvip/server/audit"
	mw "github.com/tvip/server/middleware"
)

// LogsHandler exposes the audit trail, scoped by caller role.
type LogsHandler struct {
	logs *audit.LogService
	reg  *admin.Registry
}

// NewLogsHandler creates a LogsHandler.
func NewLogsHandler(logs *audit.LogService, reg *admin.Registry) *LogsHandler {
	return &LogsHandler{logs: logs, reg: reg}
}

// List handles GET /api/vip-logs. Admins see all entries; everyone else only
// sees entries targeting themselves. Requires Auth.
func (h *LogsHandler) List(c *gin.Context) {
	callerID := mw.GetSteamID(c)

	isAdmin, err := h.reg.IsAdmin(c.Request.Context(), callerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	entries, err := h.logs.VisibleLogs(c.Request.Context(), callerID, isAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, entries)
}
