package services

import (
	"testing"

	"adminhub/internal/models"
	"adminhub/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newUserFixture(t *testing.T) (*UserService, *models.Tenant, *gorm.DB) {
	db := setupTestDB(t)
	audit := newTestAudit(t, db)
	tenant := createTestTenant(t, db, "acme")
	return NewUserService(db, audit, nil), tenant, db
}

func TestUserCreateValidation(t *testing.T) {
	svc, tenant, _ := newUserFixture(t)

	cases := []UserInput{
		{Username: "ab", Email: "a@b.com", Password: "secret123", Name: "张三"},       // 用户名过短
		{Username: "bad name", Email: "a@b.com", Password: "secret123", Name: "张三"}, // 用户名含空格
		{Username: "alice", Email: "not-an-email", Password: "secret123", Name: "张三"},
		{Username: "alice", Email: "a@b.com", Password: "short", Name: "张三"},
		{Username: "alice", Email: "a@b.com", Password: "secret123", Name: ""},
		{Username: "alice", Email: "a@b.com", Password: "secret123", Name: "张三", RoleID: uintPtr(999)},
	}
	for _, input := range cases {
		_, err := svc.Create(testActor, tenant.ID, input)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok, "input=%+v", input)
		assert.Equal(t, apperrors.CodeValidation, appErr.Code)
	}
}

func TestUserCreateDuplicateInTenant(t *testing.T) {
	svc, tenant, db := newUserFixture(t)
	other := createTestTenant(t, db, "other")

	_, err := svc.Create(testActor, tenant.ID, UserInput{Username: "alice", Email: "alice@example.com", Password: "secret123", Name: "张三"})
	require.NoError(t, err)

	_, err = svc.Create(testActor, tenant.ID, UserInput{Username: "alice", Email: "alice2@example.com", Password: "secret123", Name: "李四"})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)

	// 不同租户允许重名
	_, err = svc.Create(testActor, other.ID, UserInput{Username: "alice", Email: "alice@example.com", Password: "secret123", Name: "王五"})
	require.NoError(t, err)
}

func TestUserSoftDelete(t *testing.T) {
	svc, tenant, db := newUserFixture(t)

	user, err := svc.Create(testActor, tenant.ID, UserInput{Username: "alice", Email: "alice@example.com", Password: "secret123", Name: "张三"})
	require.NoError(t, err)

	require.NoError(t, svc.SoftDelete(testActor, tenant.ID, user.ID))

	// 普通查询视为不存在
	_, err = svc.GetByID(tenant.ID, user.ID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)

	// 数据仍在库里
	var raw models.User
	require.NoError(t, db.First(&raw, user.ID).Error)
	assert.Equal(t, models.UserStatusDeleted, raw.Status)

	// 统计不计入
	stats, err := svc.GetStats(tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Total)
}

func TestUserAuthenticate(t *testing.T) {
	svc, tenant, db := newUserFixture(t)

	user, err := svc.Create(testActor, tenant.ID, UserInput{Username: "alice", Email: "alice@example.com", Password: "secret123", Name: "张三"})
	require.NoError(t, err)

	got, err := svc.Authenticate("acme", "alice", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotNil(t, got.LastLoginAt)

	// 错误密码和不存在的用户返回同样的提示
	_, err = svc.Authenticate("acme", "alice", "wrongpass")
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeUnauthorized, appErr.Code)

	_, badUserErr := svc.Authenticate("acme", "nobody", "secret123")
	badUserApp, ok := apperrors.AsAppError(badUserErr)
	require.True(t, ok)
	assert.Equal(t, appErr.Message, badUserApp.Message)

	// 锁定用户
	_, err = svc.ChangeStatus(testActor, tenant.ID, user.ID, models.UserStatusLocked)
	require.NoError(t, err)
	_, err = svc.Authenticate("acme", "alice", "secret123")
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)

	// 租户停用
	_, err = svc.ChangeStatus(testActor, tenant.ID, user.ID, models.UserStatusActive)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Tenant{}).Where("id = ?", tenant.ID).
		Update("status", models.TenantStatusSuspended).Error)
	_, err = svc.Authenticate("acme", "alice", "secret123")
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)
}

func TestUserPermissionCodes(t *testing.T) {
	svc, tenant, db := newUserFixture(t)
	audit := NewAuditService(db, 16)
	audit.Start()
	t.Cleanup(audit.Stop)
	roles := NewRoleService(db, audit, nil)
	perms := NewPermissionService(db, audit)

	role, err := roles.Create(testActor, tenant.ID, RoleInput{Code: "ops", Name: "运营角色"})
	require.NoError(t, err)
	p, err := perms.Create(testActor, tenant.ID, PermissionInput{Code: "user:read", Name: "查看用户", Type: models.PermissionTypeButton})
	require.NoError(t, err)
	require.NoError(t, roles.AddPermissions(testActor, tenant.ID, role.ID, []uint{p.ID}))

	user, err := svc.Create(testActor, tenant.ID, UserInput{
		Username: "alice", Email: "alice@example.com", Password: "secret123", Name: "张三", RoleID: &role.ID,
	})
	require.NoError(t, err)

	codes, err := svc.GetPermissionCodes(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"user:read"}, codes)

	has, err := svc.HasPermission(user.ID, "user:read")
	require.NoError(t, err)
	assert.True(t, has)
	has, err = svc.HasPermission(user.ID, "user:delete")
	require.NoError(t, err)
	assert.False(t, has)

	// 停用权限后不再返回
	require.NoError(t, db.Model(&models.Permission{}).Where("id = ?", p.ID).
		Update("status", models.PermissionStatusInactive).Error)
	codes, err = svc.GetPermissionCodes(user.ID)
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestUserSuperRoleWildcard(t *testing.T) {
	svc, tenant, db := newUserFixture(t)

	super := &models.Role{TenantID: tenant.ID, Code: "platform_admin", Name: "平台管理员", IsSuper: true, IsSystem: true, Status: models.RoleStatusActive}
	require.NoError(t, db.Create(super).Error)

	user, err := svc.Create(testActor, tenant.ID, UserInput{
		Username: "root", Email: "root@example.com", Password: "secret123", Name: "超管", RoleID: &super.ID,
	})
	require.NoError(t, err)

	codes, err := svc.GetPermissionCodes(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, codes)

	has, err := svc.HasPermission(user.ID, "anything:at_all")
	require.NoError(t, err)
	assert.True(t, has)

	// 停用超级角色后通配失效
	require.NoError(t, db.Model(super).Update("status", models.RoleStatusInactive).Error)
	codes, err = svc.GetPermissionCodes(user.ID)
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestUserPlatformAdminWildcard(t *testing.T) {
	svc, tenant, db := newUserFixture(t)

	user := createTestUser(t, db, tenant.ID, "root")
	require.NoError(t, db.Model(user).Update("is_platform_admin", true).Error)

	codes, err := svc.GetPermissionCodes(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, codes)
}

func TestUserTenantIsolation(t *testing.T) {
	svc, tenant, db := newUserFixture(t)
	other := createTestTenant(t, db, "other")

	user, err := svc.Create(testActor, tenant.ID, UserInput{Username: "alice", Email: "alice@example.com", Password: "secret123", Name: "张三"})
	require.NoError(t, err)

	_, err = svc.GetByID(other.ID, user.ID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestUserFiltersAndPaging(t *testing.T) {
	svc, tenant, _ := newUserFixture(t)

	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := svc.Create(testActor, tenant.ID, UserInput{
			Username: name, Email: name + "@example.com", Password: "secret123", Name: name,
		})
		require.NoError(t, err)
	}
	_, err := svc.ChangeStatus(testActor, tenant.ID, 2, models.UserStatusLocked)
	require.NoError(t, err)

	users, total, err := svc.GetWithFiltersAndPage(tenant.ID, "", "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, users, 2)

	users, total, err = svc.GetWithFiltersAndPage(tenant.ID, models.UserStatusLocked, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)

	_, total, err = svc.GetWithFiltersAndPage(tenant.ID, "", "car", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
