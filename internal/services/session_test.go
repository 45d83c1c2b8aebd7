package services

import (
	"testing"
	"time"

	"adminhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSessionFixture(t *testing.T) (*SessionService, *models.User, *gorm.DB) {
	db := setupTestDB(t)
	audit := newTestAudit(t, db)
	tenant := createTestTenant(t, db, "acme")
	user := createTestUser(t, db, tenant.ID, "alice")
	return NewSessionService(db, audit, nil, time.Hour), user, db
}

func TestSessionCreateAndValidate(t *testing.T) {
	svc, user, _ := newSessionFixture(t)

	session, err := svc.Create(user, "10.0.0.1", "curl/8.0", nil)
	require.NoError(t, err)
	assert.Len(t, session.Token, 32)
	assert.Nil(t, session.ImpersonatorID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)

	valid, err := svc.IsValid(session.ID)
	require.NoError(t, err)
	assert.True(t, valid)

	_, err = svc.GetByID(999)
	require.Error(t, err)
}

func TestSessionRevokeIdempotent(t *testing.T) {
	svc, user, _ := newSessionFixture(t)

	session, err := svc.Create(user, "10.0.0.1", "curl/8.0", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(testActor, session.ID))
	require.NoError(t, svc.Revoke(testActor, session.ID)) // 重复吊销不报错

	valid, err := svc.IsValid(session.ID)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestSessionRevokeAllForUser(t *testing.T) {
	svc, user, db := newSessionFixture(t)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(user, "10.0.0.1", "curl/8.0", nil)
		require.NoError(t, err)
	}
	other := createTestUser(t, db, user.TenantID, "bob")
	otherSession, err := svc.Create(other, "10.0.0.2", "curl/8.0", nil)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAllForUser(testActor, user.TenantID, user.ID))

	active, err := svc.GetActiveForUser(user.TenantID, user.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	// 其他用户的会话不受影响
	valid, err := svc.IsValid(otherSession.ID)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestSessionExpiry(t *testing.T) {
	svc, user, db := newSessionFixture(t)

	session, err := svc.Create(user, "10.0.0.1", "curl/8.0", nil)
	require.NoError(t, err)
	require.NoError(t, db.Model(session).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	valid, err := svc.IsValid(session.ID)
	require.NoError(t, err)
	assert.False(t, valid)

	active, err := svc.GetActiveForUser(user.TenantID, user.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSessionCleanupExpired(t *testing.T) {
	svc, user, db := newSessionFixture(t)

	// 刚过期：保留24小时供追溯
	recent, err := svc.Create(user, "10.0.0.1", "curl/8.0", nil)
	require.NoError(t, err)
	require.NoError(t, db.Model(recent).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	// 过期超过24小时
	stale, err := svc.Create(user, "10.0.0.1", "curl/8.0", nil)
	require.NoError(t, err)
	require.NoError(t, db.Model(stale).
		Update("expires_at", time.Now().Add(-48*time.Hour)).Error)

	// 已吊销的立即清理
	revoked, err := svc.Create(user, "10.0.0.1", "curl/8.0", nil)
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(testActor, revoked.ID))

	deleted, err := svc.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []models.UserSession
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, recent.ID, remaining[0].ID)
}

func TestSessionImpersonation(t *testing.T) {
	svc, user, _ := newSessionFixture(t)

	adminID := uint(42)
	session, err := svc.Create(user, "10.0.0.1", "curl/8.0", &adminID)
	require.NoError(t, err)
	require.NotNil(t, session.ImpersonatorID)
	assert.Equal(t, adminID, *session.ImpersonatorID)
}
