package services

import (
	"fmt"
	"strings"
	"testing"

	"adminhub/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB 每个测试独立的内存库
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.RolePermission{},
		&models.PermissionTemplate{},
		&models.Organization{},
		&models.UserOrganization{},
		&models.DataPermissionRule{},
		&models.RoleDataPermission{},
		&models.UserSession{},
		&models.SystemLog{},
	))

	return db
}

// newTestAudit 启动异步审计写入，测试结束时排空
func newTestAudit(t *testing.T, db *gorm.DB) *AuditService {
	t.Helper()
	audit := NewAuditService(db, 64)
	audit.Start()
	t.Cleanup(audit.Stop)
	return audit
}

var testActor = Actor{UserID: 1, Username: "tester", IP: "127.0.0.1"}

func uintPtr(v uint) *uint {
	return &v
}

// createTestTenant 建一个租户作为测试夹具
func createTestTenant(t *testing.T, db *gorm.DB, code string) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{
		Name:   "租户" + code,
		Code:   code,
		Status: models.TenantStatusActive,
	}
	require.NoError(t, db.Create(tenant).Error)
	return tenant
}

// createTestUser 建一个用户作为测试夹具
func createTestUser(t *testing.T, db *gorm.DB, tenantID uint, username string) *models.User {
	t.Helper()
	user := &models.User{
		TenantID: tenantID,
		Username: username,
		Email:    username + "@example.com",
		Name:     username,
		Status:   models.UserStatusActive,
	}
	require.NoError(t, user.SetPassword("secret123"))
	require.NoError(t, db.Create(user).Error)
	return user
}
