package model

import "time"

// VipGrant is one player's current VIP window. At most one row exists per
// player; a grant is "active" when now < ExpiresAt, which is evaluated at
// query time and never stored.
type VipGrant struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID   string    `gorm:"uniqueIndex;size:32;not null" json:"player_id"`
	PlayerName string    `gorm:"size:64;not null" json:"player_name"`
	AdminID    string    `gorm:"size:32;not null" json:"admin_id"`
	AdminName  string    `gorm:"size:64" json:"admin_name"`
	StartedAt  time.Time `gorm:"autoCreateTime" json:"started_at"`
	ExpiresAt  time.Time `gorm:"index;not null" json:"expires_at"`
}

func (VipGrant) TableName() string { return "vip_grants" }

// ActiveAt reports whether the grant is live at the given instant.
func (g *VipGrant) ActiveAt(t time.Time) bool {
	return t.Before(g.ExpiresAt)
}
