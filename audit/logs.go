package audit

import (
	"context"

	"github.com/tvip/server/model"
	"gorm.io/gorm"
)

// VisibleLimit caps how many entries a single log query returns. Callers
// with more history simply do not see older entries; there is no pagination.
const VisibleLimit = 1000

// LogService scopes audit visibility by caller role. It is strictly
// read-only: the Recorder is the only writer to the audit table.
type LogService struct {
	db *gorm.DB
}

// NewLogService creates a LogService.
func NewLogService(db *gorm.DB) *LogService {
	return &LogService{db: db}
}

// VisibleLogs returns up to VisibleLimit entries, newest first. Admins see
// everything; other callers only see entries targeting themselves.
func (s *LogService) VisibleLogs(ctx context.Context, callerID string, isAdmin bool) ([]model.AuditLog, error) {
	q := s.db.WithContext(ctx).Model(&model.AuditLog{})
	if !isAdmin {
		q = q.Where("target_player_id = ?", callerID)
	}

	logs := make([]model.AuditLog, 0)
	err := q.Order("created_at DESC, id DESC").
		Limit(VisibleLimit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
