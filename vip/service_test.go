package vip

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tvip/server/audit"
	"github.com/tvip/server/model"
	"github.com/tvip/server/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	svc := NewService(db, audit.NewRecorder(logger), logger)
	return svc, db
}

func grantAt(t *testing.T, svc *Service, at time.Time, playerID string, n int, u Unit) {
	t.Helper()
	svc.now = func() time.Time { return at }
	require.NoError(t, svc.Grant(context.Background(), GrantRequest{
		PlayerID:   playerID,
		PlayerName: "Player " + playerID,
		AdminID:    "admin-1",
		AdminName:  "Alice",
		Duration:   n,
		Unit:       u,
	}))
}

func auditActions(t *testing.T, db *gorm.DB) []string {
	t.Helper()
	var logs []model.AuditLog
	require.NoError(t, db.Order("id ASC").Find(&logs).Error)
	actions := make([]string, len(logs))
	for i, l := range logs {
		actions[i] = l.Action
	}
	return actions
}

func TestGrant_MonthEndClamp(t *testing.T) {
	svc, db := newTestService(t)
	t0 := ts("2024-01-31T00:00:00Z")

	grantAt(t, svc, t0, "p1", 1, UnitMonth)

	var g model.VipGrant
	require.NoError(t, db.Where("player_id = ?", "p1").First(&g).Error)
	assert.Equal(t, ts("2024-02-29T00:00:00Z"), g.ExpiresAt.UTC())
	assert.Equal(t, t0, g.StartedAt.UTC())
	assert.Equal(t, "admin-1", g.AdminID)

	assert.Equal(t, []string{audit.ActionGrant}, auditActions(t, db))
}

func TestGrant_InvalidInputs(t *testing.T) {
	svc, db := newTestService(t)

	err := svc.Grant(context.Background(), GrantRequest{
		PlayerID: "p1", PlayerName: "P", AdminID: "a", Duration: 0, Unit: UnitMonth,
	})
	assert.ErrorIs(t, err, ErrInvalidDuration)

	err = svc.Grant(context.Background(), GrantRequest{
		PlayerID: "p1", PlayerName: "P", AdminID: "a", Duration: 1, Unit: Unit("DECADE"),
	})
	assert.ErrorIs(t, err, ErrInvalidUnit)

	// Failed grants leave no rows behind, in either table.
	var grants int64
	db.Model(&model.VipGrant{}).Count(&grants)
	assert.Zero(t, grants)
	assert.Empty(t, auditActions(t, db))
}

func TestGrant_RegrantReplacesWindow(t *testing.T) {
	svc, db := newTestService(t)

	grantAt(t, svc, ts("2024-01-01T00:00:00Z"), "p1", 1, UnitMonth)
	grantAt(t, svc, ts("2024-06-01T00:00:00Z"), "p1", 30, UnitMinute)

	var grants []model.VipGrant
	require.NoError(t, db.Where("player_id = ?", "p1").Find(&grants).Error)
	require.Len(t, grants, 1, "regrant must replace, not duplicate")
	assert.Equal(t, ts("2024-06-01T00:30:00Z"), grants[0].ExpiresAt.UTC())
	assert.Equal(t, ts("2024-06-01T00:00:00Z"), grants[0].StartedAt.UTC())

	assert.Equal(t, []string{audit.ActionGrant, audit.ActionGrant}, auditActions(t, db))
}

func TestListActive_EvaluatesNowPerCall(t *testing.T) {
	svc, _ := newTestService(t)
	t0 := ts("2024-01-01T00:00:00Z")

	grantAt(t, svc, t0, "p1", 10, UnitMinute)

	// One second before expiry: present.
	svc.now = func() time.Time { return t0.Add(10*time.Minute - time.Second) }
	active, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "p1", active[0].PlayerID)

	// One second after expiry: absent. No state transition happened.
	svc.now = func() time.Time { return t0.Add(10*time.Minute + time.Second) }
	active, err = svc.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestListActive_OrderedByExpiry(t *testing.T) {
	svc, _ := newTestService(t)
	t0 := ts("2024-01-01T00:00:00Z")

	grantAt(t, svc, t0, "late", 60, UnitMinute)
	grantAt(t, svc, t0, "soon", 5, UnitMinute)

	svc.now = func() time.Time { return t0 }
	active, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "soon", active[0].PlayerID)
	assert.Equal(t, "late", active[1].PlayerID)
}

func TestExtend_RelativeToStoredExpiry(t *testing.T) {
	svc, db := newTestService(t)
	t0 := ts("2024-01-01T00:00:00Z")

	grantAt(t, svc, t0, "p1", 10, UnitMinute)

	// Current time is irrelevant to the extension arithmetic.
	svc.now = func() time.Time { return t0.Add(48 * time.Hour) }
	require.NoError(t, svc.Extend(context.Background(), ExtendRequest{
		PlayerID: "p1", Duration: 10, Unit: UnitMinute, AdminID: "admin-1",
	}))

	var g model.VipGrant
	require.NoError(t, db.Where("player_id = ?", "p1").First(&g).Error)
	assert.Equal(t, t0.Add(20*time.Minute), g.ExpiresAt.UTC())
}

func TestExtend_RevivesExpiredGrant(t *testing.T) {
	svc, _ := newTestService(t)
	t0 := ts("2024-01-01T00:00:00Z")

	grantAt(t, svc, t0, "p1", 5, UnitMinute)

	// Well past expiry: the grant is inactive.
	now := t0.Add(24 * time.Hour)
	svc.now = func() time.Time { return now }
	active, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	require.Empty(t, active)

	// Extending by a month lands the expiry back in the future.
	require.NoError(t, svc.Extend(context.Background(), ExtendRequest{
		PlayerID: "p1", Duration: 1, Unit: UnitMonth, AdminID: "admin-1",
	}))
	active, err = svc.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, ts("2024-02-01T00:05:00Z"), active[0].ExpiresAt.UTC())
}

func TestExtend_NotFound(t *testing.T) {
	svc, db := newTestService(t)

	err := svc.Extend(context.Background(), ExtendRequest{
		PlayerID: "ghost", Duration: 10, Unit: UnitMinute, AdminID: "admin-1",
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, auditActions(t, db), "failed extend must not audit")
}

func TestUpdate_AbsoluteOverwrite(t *testing.T) {
	svc, db := newTestService(t)
	t0 := ts("2024-01-01T00:00:00Z")

	grantAt(t, svc, t0, "p1", 10, UnitMinute)

	newExpiry := ts("2025-01-01T00:00:00Z")
	require.NoError(t, svc.Update(context.Background(), UpdateRequest{
		PlayerID:   "p1",
		PlayerName: "Renamed",
		ExpiresAt:  newExpiry,
		AdminID:    "admin-1",
	}))

	var g model.VipGrant
	require.NoError(t, db.Where("player_id = ?", "p1").First(&g).Error)
	assert.Equal(t, "Renamed", g.PlayerName)
	assert.Equal(t, newExpiry, g.ExpiresAt.UTC())

	assert.Equal(t, []string{audit.ActionGrant, audit.ActionUpdate}, auditActions(t, db))
}

func TestUpdate_NotFoundAndInvalid(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Update(context.Background(), UpdateRequest{
		PlayerID: "ghost", PlayerName: "X", ExpiresAt: ts("2025-01-01T00:00:00Z"),
	})
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.Update(context.Background(), UpdateRequest{
		PlayerID: "ghost", PlayerName: "X",
	})
	assert.ErrorIs(t, err, ErrInvalidExpiry)
}

func TestRevoke_DeletesAndAudits(t *testing.T) {
	svc, db := newTestService(t)
	t0 := ts("2024-01-01T00:00:00Z")

	grantAt(t, svc, t0, "p1", 1, UnitMonth)
	require.NoError(t, svc.Revoke(context.Background(), RevokeRequest{
		PlayerID: "p1", AdminID: "admin-1",
	}))

	var n int64
	db.Model(&model.VipGrant{}).Count(&n)
	assert.Zero(t, n)
	assert.Equal(t, []string{audit.ActionGrant, audit.ActionRevoke}, auditActions(t, db))
}

func TestRevoke_NonexistentIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)

	require.NoError(t, svc.Revoke(context.Background(), RevokeRequest{
		PlayerID: "ghost", AdminID: "admin-1",
	}))

	// Exactly one audit row: the attempt is logged even though nothing was
	// deleted.
	assert.Equal(t, []string{audit.ActionRevoke}, auditActions(t, db))
}

func TestLifecycle_EndToEnd(t *testing.T) {
	svc, db := newTestService(t)
	t0 := ts("2024-01-01T00:00:00Z")
	ctx := context.Background()

	grantAt(t, svc, t0, "p1", 1, UnitMonth)

	svc.now = func() time.Time { return t0.Add(time.Hour) }
	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, ts("2024-02-01T00:00:00Z"), active[0].ExpiresAt.UTC())

	require.NoError(t, svc.Extend(ctx, ExtendRequest{
		PlayerID: "p1", Duration: 5, Unit: UnitMinute, AdminID: "admin-1",
	}))
	var g model.VipGrant
	require.NoError(t, db.Where("player_id = ?", "p1").First(&g).Error)
	assert.Equal(t, ts("2024-02-01T00:05:00Z"), g.ExpiresAt.UTC())

	require.NoError(t, svc.Revoke(ctx, RevokeRequest{PlayerID: "p1", AdminID: "admin-1"}))
	active, err = svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.Equal(t,
		[]string{audit.ActionGrant, audit.ActionExtend, audit.ActionRevoke},
		auditActions(t, db))
}

func TestMutations_CanceledContext(t *testing.T) {
	svc, db := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Grant(ctx, GrantRequest{
		PlayerID: "p1", PlayerName: "P", AdminID: "a", Duration: 1, Unit: UnitMonth,
	})
	require.Error(t, err)

	// Nothing committed: no grant, no audit entry.
	var grants, logs int64
	db.Model(&model.VipGrant{}).Count(&grants)
	db.Model(&model.AuditLog{}).Count(&logs)
	assert.Zero(t, grants)
	assert.Zero(t, logs)
}
