package services

import (
	"testing"

	"adminhub/internal/models"
	"adminhub/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newDataPermFixture(t *testing.T) (*DataPermissionService, *RoleService, *models.Tenant, *gorm.DB) {
	db := setupTestDB(t)
	audit := newTestAudit(t, db)
	tenant := createTestTenant(t, db, "acme")
	return NewDataPermissionService(db, audit), NewRoleService(db, audit, nil), tenant, db
}

func TestDataPermissionCreateValidation(t *testing.T) {
	svc, _, tenant, _ := newDataPermFixture(t)

	_, err := svc.Create(testActor, tenant.ID, "", "", models.DataRuleAll, nil)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)

	_, err = svc.Create(testActor, tenant.ID, "坏类型", "", "everything", nil)
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)

	// custom 必须带 scope
	_, err = svc.Create(testActor, tenant.ID, "自定义", "", models.DataRuleCustom, nil)
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)

	rule, err := svc.Create(testActor, tenant.ID, "自定义", "", models.DataRuleCustom,
		datatypes.JSON(`{"org_ids":[1,2]}`))
	require.NoError(t, err)
	assert.Equal(t, models.DataRuleCustom, rule.RuleType)
}

func TestDataPermissionDeleteGuardedByRoleRefs(t *testing.T) {
	svc, roles, tenant, db := newDataPermFixture(t)

	rule, err := svc.Create(testActor, tenant.ID, "全部可见", "", models.DataRuleAll, nil)
	require.NoError(t, err)
	role, err := roles.Create(testActor, tenant.ID, RoleInput{Code: "ops", Name: "运营角色"})
	require.NoError(t, err)
	require.NoError(t, roles.AttachDataRule(testActor, tenant.ID, role.ID, rule.ID))

	err = svc.Delete(testActor, tenant.ID, rule.ID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)

	require.NoError(t, roles.DetachDataRule(testActor, tenant.ID, role.ID, rule.ID))
	require.NoError(t, svc.Delete(testActor, tenant.ID, rule.ID))

	var count int64
	db.Model(&models.DataPermissionRule{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestDataPermissionResolveMostPermissiveWins(t *testing.T) {
	svc, roles, tenant, db := newDataPermFixture(t)

	deptRule, err := svc.Create(testActor, tenant.ID, "本部门", "", models.DataRuleDept, nil)
	require.NoError(t, err)
	orgRule, err := svc.Create(testActor, tenant.ID, "本组织", "", models.DataRuleOrg, nil)
	require.NoError(t, err)
	selfRule, err := svc.Create(testActor, tenant.ID, "仅本人", "", models.DataRuleSelf, nil)
	require.NoError(t, err)

	role, err := roles.Create(testActor, tenant.ID, RoleInput{Code: "ops", Name: "运营角色"})
	require.NoError(t, err)
	for _, r := range []*models.DataPermissionRule{deptRule, orgRule, selfRule} {
		require.NoError(t, roles.AttachDataRule(testActor, tenant.ID, role.ID, r.ID))
	}

	user := createTestUser(t, db, tenant.ID, "alice")
	require.NoError(t, db.Model(user).Update("role_id", role.ID).Error)

	got, err := svc.ResolveForUser(tenant.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, orgRule.ID, got.ID)

	// 最宽的规则被停用后退回次宽
	require.NoError(t, db.Model(orgRule).Update("status", models.OrganizationStatusInactive).Error)
	got, err = svc.ResolveForUser(tenant.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, deptRule.ID, got.ID)
}

func TestDataPermissionResolveFallbackSelf(t *testing.T) {
	svc, roles, tenant, db := newDataPermFixture(t)

	// 无角色用户
	user := createTestUser(t, db, tenant.ID, "alice")
	got, err := svc.ResolveForUser(tenant.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DataRuleSelf, got.RuleType)
	assert.Zero(t, got.ID)

	// 有角色但角色没挂任何规则
	role, err := roles.Create(testActor, tenant.ID, RoleInput{Code: "ops", Name: "运营角色"})
	require.NoError(t, err)
	require.NoError(t, db.Model(user).Update("role_id", role.ID).Error)
	got, err = svc.ResolveForUser(tenant.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DataRuleSelf, got.RuleType)

	// 用户不存在
	_, err = svc.ResolveForUser(tenant.ID, 999)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}
