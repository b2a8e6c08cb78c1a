package model

import "time"

// AdminEntry marks a Steam identity as an administrator. Membership is
// binary; there are no finer-grained permissions.
type AdminEntry struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SteamID   string    `gorm:"uniqueIndex;size:32;not null" json:"steam_id"`
	Name      string    `gorm:"size:64" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AdminEntry) TableName() string { return "vip_admins" }
