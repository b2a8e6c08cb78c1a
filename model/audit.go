package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records one VIP lifecycle action. Rows are append-only: nothing in
// the codebase updates or deletes them.
type AuditLog struct {
	ID               int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Action           string         `gorm:"size:16;not null" json:"action"`
	TargetPlayerID   string         `gorm:"index:idx_audit_target;size:32;not null" json:"target_player_id"`
	TargetPlayerName string         `gorm:"size:64" json:"target_player_name"`
	AdminID          string         `gorm:"size:32" json:"admin_id"`
	AdminName        string         `gorm:"size:64" json:"admin_name"`
	Duration         int            `json:"duration,omitempty"`
	DurationUnit     string         `gorm:"size:8" json:"duration_unit,omitempty"`
	TraceID          string         `gorm:"size:36" json:"trace_id"`
	Detail           datatypes.JSON `json:"detail,omitempty"`
	CreatedAt        time.Time      `gorm:"index:idx_audit_created;autoCreateTime" json:"created_at"`
}

func (AuditLog) TableName() string { return "vip_audit_logs" }
