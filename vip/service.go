package vip

import (
	"context"
	"errors"
	"time"

	"github.com/tvip/server/audit"
	"github.com/tvip/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service applies VIP lifecycle transitions: grant, extend, update, revoke.
// Every mutation and its audit entry are written in one transaction, so a
// failed row write never leaves a stray audit entry and vice versa.
//
// Authorization is the API boundary's job (RequireAdmin middleware); the
// service trusts the admin identity fields it is handed.
type Service struct {
	db     *gorm.DB
	rec    *audit.Recorder
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a Service. The clock defaults to time.Now.
func NewService(db *gorm.DB, rec *audit.Recorder, logger *zap.Logger) *Service {
	return &Service{db: db, rec: rec, logger: logger, now: time.Now}
}

// GrantRequest creates or replaces a player's VIP window.
type GrantRequest struct {
	PlayerID   string
	PlayerName string
	AdminID    string
	AdminName  string
	Duration   int
	Unit       Unit
	TraceID    string
}

// ExtendRequest pushes an existing expiry further out, relative to the
// stored expiry (not to now).
type ExtendRequest struct {
	PlayerID  string
	Duration  int
	Unit      Unit
	AdminID   string
	AdminName string
	TraceID   string
}

// UpdateRequest overwrites a grant's display name and expiry absolutely.
type UpdateRequest struct {
	PlayerID   string
	PlayerName string
	ExpiresAt  time.Time
	AdminID    string
	AdminName  string
	TraceID    string
}

// RevokeRequest deletes a player's grant.
type RevokeRequest struct {
	PlayerID  string
	AdminID   string
	AdminName string
	TraceID   string
}

// ListActive returns all grants whose expiry is still in the future, soonest
// expiry first. The cutoff is evaluated on every call; nothing is cached.
func (s *Service) ListActive(ctx context.Context) ([]model.VipGrant, error) {
	grants := make([]model.VipGrant, 0)
	err := s.db.WithContext(ctx).
		Where("expires_at > ?", s.now()).
		Order("expires_at ASC").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// Grant creates a VIP window starting now, or replaces the existing one for
// the same player (regrant is idempotent, not a conflict). The window is
// now + duration·unit with calendar-aware month arithmetic.
func (s *Service) Grant(ctx context.Context, req GrantRequest) error {
	now := s.now()
	expires, err := AddDuration(now, req.Duration, req.Unit)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		grant := model.VipGrant{
			PlayerID:   req.PlayerID,
			PlayerName: req.PlayerName,
			AdminID:    req.AdminID,
			AdminName:  req.AdminName,
			StartedAt:  now,
			ExpiresAt:  expires,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"player_name", "admin_id", "admin_name", "started_at", "expires_at",
			}),
		}).Create(&grant).Error; err != nil {
			return err
		}
		return s.rec.Record(ctx, tx, audit.Entry{
			Action:           audit.ActionGrant,
			TargetPlayerID:   req.PlayerID,
			TargetPlayerName: req.PlayerName,
			AdminID:          req.AdminID,
			AdminName:        req.AdminName,
			Duration:         req.Duration,
			DurationUnit:     string(req.Unit),
			TraceID:          req.TraceID,
			Detail:           req,
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("vip granted",
		zap.String("player_id", req.PlayerID),
		zap.String("admin_id", req.AdminID),
		zap.Time("expires_at", expires),
	)
	return nil
}

// Extend adds duration·unit to the stored expiry. An already-expired grant
// is revived, since the active predicate is purely time-based. The row is
// locked for the duration of the transaction so concurrent extends on the
// same player serialize instead of losing updates.
func (s *Service) Extend(ctx context.Context, req ExtendRequest) error {
	if req.Duration <= 0 {
		return ErrInvalidDuration
	}

	var newExpiry time.Time
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var grant model.VipGrant
		if err := lockForUpdate(tx).
			Where("player_id = ?", req.PlayerID).
			First(&grant).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		expiry, err := AddDuration(grant.ExpiresAt, req.Duration, req.Unit)
		if err != nil {
			return err
		}
		newExpiry = expiry

		if err := tx.Model(&grant).Update("expires_at", newExpiry).Error; err != nil {
			return err
		}
		return s.rec.Record(ctx, tx, audit.Entry{
			Action:           audit.ActionExtend,
			TargetPlayerID:   grant.PlayerID,
			TargetPlayerName: grant.PlayerName,
			AdminID:          req.AdminID,
			AdminName:        req.AdminName,
			Duration:         req.Duration,
			DurationUnit:     string(req.Unit),
			TraceID:          req.TraceID,
			Detail:           req,
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("vip extended",
		zap.String("player_id", req.PlayerID),
		zap.String("admin_id", req.AdminID),
		zap.Time("expires_at", newExpiry),
	)
	return nil
}

// Update overwrites the player name and expiry directly. Unlike extend, the
// expiry here is absolute. Update audits like every other mutation: all four
// lifecycle operations are symmetric.
func (s *Service) Update(ctx context.Context, req UpdateRequest) error {
	if req.ExpiresAt.IsZero() {
		return ErrInvalidExpiry
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var grant model.VipGrant
		if err := lockForUpdate(tx).
			Where("player_id = ?", req.PlayerID).
			First(&grant).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := tx.Model(&grant).Updates(map[string]interface{}{
			"player_name": req.PlayerName,
			"expires_at":  req.ExpiresAt,
		}).Error; err != nil {
			return err
		}
		return s.rec.Record(ctx, tx, audit.Entry{
			Action:           audit.ActionUpdate,
			TargetPlayerID:   grant.PlayerID,
			TargetPlayerName: req.PlayerName,
			AdminID:          req.AdminID,
			AdminName:        req.AdminName,
			TraceID:          req.TraceID,
			Detail:           req,
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("vip updated",
		zap.String("player_id", req.PlayerID),
		zap.String("admin_id", req.AdminID),
		zap.Time("expires_at", req.ExpiresAt),
	)
	return nil
}

// Revoke deletes the grant row. Revoking a player with no grant is still a
// success (zero rows affected) and still writes the audit entry, so the
// attempt is visible in the trail either way.
func (s *Service) Revoke(ctx context.Context, req RevokeRequest) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("player_id = ?", req.PlayerID).Delete(&model.VipGrant{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			s.logger.Debug("revoke of nonexistent grant",
				zap.String("player_id", req.PlayerID))
		}
		return s.rec.Record(ctx, tx, audit.Entry{
			Action:         audit.ActionRevoke,
			TargetPlayerID: req.PlayerID,
			AdminID:        req.AdminID,
			AdminName:      req.AdminName,
			TraceID:        req.TraceID,
			Detail:         req,
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("vip revoked",
		zap.String("player_id", req.PlayerID),
		zap.String("admin_id", req.AdminID),
	)
	return nil
}

// lockForUpdate adds a row lock where the dialect supports one. SQLite
// serializes writers at the database level, and its parser rejects FOR
// UPDATE, so the clause is applied only on MySQL.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
