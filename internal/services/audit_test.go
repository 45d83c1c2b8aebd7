package services

import (
	"testing"
	"time"

	"adminhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRecordChangeFlushedOnStop(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTestTenant(t, db, "acme")

	audit := NewAuditService(db, 16)
	audit.Start()
	audit.RecordChange(tenant.ID, 1, "tester", "tenant", "create", tenant.ID,
		nil, map[string]string{"code": "acme"})
	audit.RecordChange(tenant.ID, 1, "tester", "tenant", "update", tenant.ID,
		map[string]string{"name": "旧"}, map[string]string{"name": "新"})
	audit.Stop() // 排空缓冲区后返回

	logs, total, err := audit.GetWithPage(tenant.ID, "", "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, logs, 2)

	var created *models.SystemLog
	for _, l := range logs {
		if l.Action == "create" {
			created = l
		}
	}
	require.NotNil(t, created)
	assert.Equal(t, "tester", created.Username)
	assert.Nil(t, created.OldValue)
	assert.JSONEq(t, `{"code":"acme"}`, string(created.NewValue))
}

func TestAuditGetWithPageFilters(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTestTenant(t, db, "acme")
	other := createTestTenant(t, db, "other")

	audit := NewAuditService(db, 16)
	audit.Start()
	audit.RecordChange(tenant.ID, 1, "tester", "user", "create", 1, nil, nil)
	audit.RecordChange(tenant.ID, 1, "tester", "user", "delete", 1, nil, nil)
	audit.RecordChange(tenant.ID, 1, "tester", "role", "create", 2, nil, nil)
	audit.RecordChange(other.ID, 1, "tester", "user", "create", 3, nil, nil)
	audit.Stop()

	_, total, err := audit.GetWithPage(tenant.ID, "", "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	logs, total, err := audit.GetWithPage(tenant.ID, "user", "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, l := range logs {
		assert.Equal(t, "user", l.Module)
	}

	_, total, err = audit.GetWithPage(tenant.ID, "user", "delete", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestAuditGetSince(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTestTenant(t, db, "acme")

	old := models.SystemLog{TenantID: tenant.ID, Module: "user", Action: "create"}
	old.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, db.Create(&old).Error)
	fresh := models.SystemLog{TenantID: tenant.ID, Module: "user", Action: "update"}
	fresh.CreatedAt = time.Now()
	require.NoError(t, db.Create(&fresh).Error)

	logs, err := NewAuditService(db, 16).GetSince(tenant.ID, time.Now().Add(-time.Minute), 100)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "update", logs[0].Action)
}

func TestAuditCleanupExpired(t *testing.T) {
	db := setupTestDB(t)
	tenant := createTestTenant(t, db, "acme")

	stale := models.SystemLog{TenantID: tenant.ID, Module: "user", Action: "create"}
	stale.CreatedAt = time.Now().AddDate(0, 0, -100)
	require.NoError(t, db.Create(&stale).Error)
	fresh := models.SystemLog{TenantID: tenant.ID, Module: "user", Action: "update"}
	fresh.CreatedAt = time.Now()
	require.NoError(t, db.Create(&fresh).Error)

	deleted, err := NewAuditService(db, 16).CleanupExpired(90)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []models.SystemLog
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "update", remaining[0].Action)
}
