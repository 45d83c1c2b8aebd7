package services

import (
	"testing"

	"adminhub/internal/models"
	"adminhub/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newRoleFixture(t *testing.T) (*RoleService, *PermissionService, *models.Tenant, *gorm.DB) {
	db := setupTestDB(t)
	audit := newTestAudit(t, db)
	tenant := createTestTenant(t, db, "acme")
	return NewRoleService(db, audit, nil), NewPermissionService(db, audit), tenant, db
}

func TestRoleCreateValidation(t *testing.T) {
	svc, _, tenant, _ := newRoleFixture(t)

	_, err := svc.Create(testActor, tenant.ID, RoleInput{Code: "a", Name: "运营角色"})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)

	_, err = svc.Create(testActor, tenant.ID, RoleInput{Code: "has-dash", Name: "运营角色"})
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)

	_, err = svc.Create(testActor, tenant.ID, RoleInput{Code: "ops", Name: "短"})
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
}

func TestRoleCreateDuplicate(t *testing.T) {
	svc, _, tenant, _ := newRoleFixture(t)

	_, err := svc.Create(testActor, tenant.ID, RoleInput{Code: "ops", Name: "运营角色"})
	require.NoError(t, err)

	_, err = svc.Create(testActor, tenant.ID, RoleInput{Code: "ops", Name: "另一个名字"})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestRoleSystemProtected(t *testing.T) {
	svc, _, tenant, db := newRoleFixture(t)

	role := &models.Role{TenantID: tenant.ID, Code: "platform_admin", Name: "平台管理员", IsSystem: true, Status: models.RoleStatusActive}
	require.NoError(t, db.Create(role).Error)

	_, err := svc.Update(testActor, tenant.ID, role.ID, RoleInput{Name: "改个名字"})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeSystemResourceProtected, appErr.Code)

	err = svc.Delete(testActor, tenant.ID, role.ID)
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeSystemResourceProtected, appErr.Code)
}

func TestRoleDeleteWithUsersForbidden(t *testing.T) {
	svc, _, tenant, db := newRoleFixture(t)

	role, err := svc.Create(testActor, tenant.ID, RoleInput{Code: "ops", Name: "运营角色"})
	require.NoError(t, err)

	user := createTestUser(t, db, tenant.ID, "alice")
	require.NoError(t, db.Model(user).Update("role_id", role.ID).Error)

	err = svc.Delete(testActor, tenant.ID, role.ID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)

	// 软删除用户后可以删
	require.NoError(t, db.Model(user).Update("status", models.UserStatusDeleted).Error)
	require.NoError(t, svc.Delete(testActor, tenant.ID, role.ID))
}

func TestRoleAssignPermissionsReplaces(t *testing.T) {
	svc, permSvc, tenant, db := newRoleFixture(t)

	role, err := svc.Create(testActor, tenant.ID, RoleInput{Code: "ops", Name: "运营角色"})
	require.NoError(t, err)

	p1, err := permSvc.Create(testActor, tenant.ID, PermissionInput{Code: "a:read", Name: "读A", Type: models.PermissionTypeButton})
	require.NoError(t, err)
	p2, err := permSvc.Create(testActor, tenant.ID, PermissionInput{Code: "b:read", Name: "读B", Type: models.PermissionTypeButton})
	require.NoError(t, err)

	require.NoError(t, svc.AssignPermissions(testActor, tenant.ID, role.ID, []uint{p1.ID}))
	perms, err := svc.GetRolePermissions(tenant.ID, role.ID)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, p1.ID, perms[0].ID)

	// 全量替换
	require.NoError(t, svc.AssignPermissions(testActor, tenant.ID, role.ID, []uint{p2.ID}))
	perms, err = svc.GetRolePermissions(tenant.ID, role.ID)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, p2.ID, perms[0].ID)

	// 清空
	require.NoError(t, svc.AssignPermissions(testActor, tenant.ID, role.ID, nil))
	var count int64
	db.Model(&models.RolePermission{}).Where("role_id = ?", role.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestRoleAddPermissionsIdempotent(t *testing.T) {
	svc, permSvc, tenant, db := newRoleFixture(t)

	role, err := svc.Create(testActor, tenant.ID, RoleInput{Code: "ops", Name: "运营角色"})
	require.NoError(t, err)
	p1, err := permSvc.Create(testActor, tenant.ID, PermissionInput{Code: "a:read", Name: "读A", Type: models.PermissionTypeButton})
	require.NoError(t, err)
	p2, err := permSvc.Create(testActor, tenant.ID, PermissionInput{Code: "b:read", Name: "读B", Type: models.PermissionTypeButton})
	require.NoError(t, err)

	require.NoError(t, svc.AddPermissions(testActor, tenant.ID, role.ID, []uint{p1.ID}))
	// 重复授权 + 新增，既不报错也不产生重复行
	require.NoError(t, svc.AddPermissions(testActor, tenant.ID, role.ID, []uint{p1.ID, p2.ID}))

	var count int64
	db.Model(&models.RolePermission{}).Where("role_id = ?", role.ID).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestRoleAssignPermissionsIgnoresForeignTenant(t *testing.T) {
	svc, permSvc, tenant, db := newRoleFixture(t)
	other := createTestTenant(t, db, "other")

	role, err := svc.Create(testActor, tenant.ID, RoleInput{Code: "ops", Name: "运营角色"})
	require.NoError(t, err)
	foreign, err := permSvc.Create(testActor, other.ID, PermissionInput{Code: "x:read", Name: "越界权限", Type: models.PermissionTypeButton})
	require.NoError(t, err)

	require.NoError(t, svc.AssignPermissions(testActor, tenant.ID, role.ID, []uint{foreign.ID}))

	var count int64
	db.Model(&models.RolePermission{}).Where("role_id = ?", role.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestRoleParentCycleRejected(t *testing.T) {
	svc, _, tenant, _ := newRoleFixture(t)

	a, err := svc.Create(testActor, tenant.ID, RoleInput{Code: "aa", Name: "角色甲"})
	require.NoError(t, err)
	b, err := svc.Create(testActor, tenant.ID, RoleInput{ParentID: &a.ID, Code: "bb", Name: "角色乙"})
	require.NoError(t, err)

	_, err = svc.Update(testActor, tenant.ID, a.ID, RoleInput{ParentID: &b.ID, Name: "角色甲"})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
}
