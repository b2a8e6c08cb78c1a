package audit

import (
	"context"
	"encoding/json"

	"github.com/tvip/server/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Lifecycle action names as they appear in the audit trail.
const (
	ActionGrant  = "grant"
	ActionExtend = "extend"
	ActionUpdate = "update"
	ActionRevoke = "revoke"
	// ActionExpire is reserved for a future automatic transition; no
	// operation produces it today.
	ActionExpire = "expire"
)

// Entry holds one audit event to be recorded.
type Entry struct {
	Action           string
	TargetPlayerID   string
	TargetPlayerName string
	AdminID          string
	AdminName        string
	Duration         int
	DurationUnit     string
	TraceID          string
	Detail           interface{}
}

// Recorder appends audit rows. Callers inside a transaction pass their
// transaction handle so the entry commits or rolls back with the mutation
// it describes.
type Recorder struct {
	logger *zap.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(logger *zap.Logger) *Recorder {
	return &Recorder{logger: logger}
}

// Record writes one entry using the given DB handle (typically a tx).
func (r *Recorder) Record(ctx context.Context, tx *gorm.DB, e Entry) error {
	var detail datatypes.JSON
	if e.Detail != nil {
		b, err := json.Marshal(e.Detail)
		if err != nil {
			r.logger.Warn("audit detail not serializable",
				zap.String("action", e.Action), zap.Error(err))
		} else {
			detail = datatypes.JSON(b)
		}
	}

	row := &model.AuditLog{
		Action:           e.Action,
		TargetPlayerID:   e.TargetPlayerID,
		TargetPlayerName: e.TargetPlayerName,
		AdminID:          e.AdminID,
		AdminName:        e.AdminName,
		Duration:         e.Duration,
		DurationUnit:     e.DurationUnit,
		TraceID:          e.TraceID,
		Detail:           detail,
	}
	return tx.WithContext(ctx).Create(row).Error
}
