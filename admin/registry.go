// Package admin holds the administrator allow-list. Membership decides who
// may mutate VIP grants and who sees the full audit trail.
package admin

import (
	"context"

	"github.com/tvip/server/model"
	"gorm.io/gorm"
)

// Registry answers admin membership checks. It is an injected dependency
// (no package-level state) so tests and per-request scoping can substitute
// their own.
type Registry struct {
	db *gorm.DB
}

// NewRegistry creates a Registry.
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// IsAdmin reports whether the given Steam ID is in the admin set. Every call
// re-queries the store: membership changes must take effect between requests
// within the same session, so nothing is cached.
func (r *Registry) IsAdmin(ctx context.Context, steamID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.AdminEntry{}).
		Where("steam_id = ?", steamID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
