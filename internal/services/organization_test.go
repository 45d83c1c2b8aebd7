package services

import (
	"fmt"
	"testing"

	"adminhub/internal/models"
	"adminhub/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newOrgFixture(t *testing.T) (*OrganizationService, *models.Tenant, *gorm.DB) {
	db := setupTestDB(t)
	audit := newTestAudit(t, db)
	tenant := createTestTenant(t, db, "acme")
	return NewOrganizationService(db, audit), tenant, db
}

func org(id uint, parentID *uint, name string, sortOrder int) *models.Organization {
	o := &models.Organization{ParentID: parentID, Name: name, Code: name, SortOrder: sortOrder}
	o.ID = id
	return o
}

func TestBuildOrganizationTree(t *testing.T) {
	orgs := []*models.Organization{
		org(1, nil, "总部", 1),
		org(2, uintPtr(1), "研发部", 2),
		org(3, uintPtr(1), "市场部", 1),
		org(4, uintPtr(2), "后端组", 1),
		org(9, uintPtr(77), "孤儿部门", 3), // 父节点缺失，按根处理
	}
	userCounts := map[uint]int64{2: 5, 4: 3}
	leaders := map[uint]*LeaderSummary{1: {ID: 10, Username: "boss", Name: "老板"}}

	roots := BuildOrganizationTree(orgs, userCounts, leaders)
	require.Len(t, roots, 2)

	hq := roots[0]
	assert.Equal(t, "总部", hq.Name)
	assert.Equal(t, 2, hq.ChildCount)
	require.NotNil(t, hq.LeaderInfo)
	assert.Equal(t, "boss", hq.LeaderInfo.Username)

	// 同层按 sort_order 排序
	assert.Equal(t, "市场部", hq.Children[0].Name)
	assert.Equal(t, "研发部", hq.Children[1].Name)
	assert.Equal(t, int64(5), hq.Children[1].UserCount)
	assert.Equal(t, 1, hq.Children[1].ChildCount)

	assert.Equal(t, "孤儿部门", roots[1].Name)
}

func TestOrganizationCreateWritesPath(t *testing.T) {
	svc, tenant, _ := newOrgFixture(t)

	root, err := svc.Create(testActor, tenant.ID, OrganizationInput{Code: "hq", Name: "总部"})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("/%d", root.ID), root.Path)

	child, err := svc.Create(testActor, tenant.ID, OrganizationInput{ParentID: &root.ID, Code: "rd", Name: "研发部"})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("/%d/%d", root.ID, child.ID), child.Path)
}

func TestOrganizationCreateValidation(t *testing.T) {
	svc, tenant, _ := newOrgFixture(t)

	_, err := svc.Create(testActor, tenant.ID, OrganizationInput{Code: "hq", Name: "短"})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)

	// 上级不存在
	_, err = svc.Create(testActor, tenant.ID, OrganizationInput{ParentID: uintPtr(999), Code: "rd", Name: "研发部"})
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
}

func TestOrganizationMoveRewritesDescendantPaths(t *testing.T) {
	svc, tenant, _ := newOrgFixture(t)

	a, err := svc.Create(testActor, tenant.ID, OrganizationInput{Code: "aa", Name: "部门甲"})
	require.NoError(t, err)
	b, err := svc.Create(testActor, tenant.ID, OrganizationInput{Code: "bb", Name: "部门乙"})
	require.NoError(t, err)
	child, err := svc.Create(testActor, tenant.ID, OrganizationInput{ParentID: &a.ID, Code: "cc", Name: "子部门"})
	require.NoError(t, err)
	grandchild, err := svc.Create(testActor, tenant.ID, OrganizationInput{ParentID: &child.ID, Code: "dd", Name: "孙部门"})
	require.NoError(t, err)

	// 把子部门整体挂到部门乙下
	moved, err := svc.Update(testActor, tenant.ID, child.ID, OrganizationInput{
		ParentID: &b.ID, Code: "cc", Name: "子部门",
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("/%d/%d", b.ID, child.ID), moved.Path)

	got, err := svc.GetByID(tenant.ID, grandchild.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("/%d/%d/%d", b.ID, child.ID, grandchild.ID), got.Path)
}

func TestOrganizationMoveIntoOwnSubtreeRejected(t *testing.T) {
	svc, tenant, _ := newOrgFixture(t)

	root, err := svc.Create(testActor, tenant.ID, OrganizationInput{Code: "hq", Name: "总部"})
	require.NoError(t, err)
	child, err := svc.Create(testActor, tenant.ID, OrganizationInput{ParentID: &root.ID, Code: "rd", Name: "研发部"})
	require.NoError(t, err)

	_, err = svc.Update(testActor, tenant.ID, root.ID, OrganizationInput{
		ParentID: &child.ID, Code: "hq", Name: "总部",
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)

	_, err = svc.Update(testActor, tenant.ID, root.ID, OrganizationInput{
		ParentID: &root.ID, Code: "hq", Name: "总部",
	})
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
}

func TestOrganizationDeleteGuards(t *testing.T) {
	svc, tenant, db := newOrgFixture(t)

	root, err := svc.Create(testActor, tenant.ID, OrganizationInput{Code: "hq", Name: "总部"})
	require.NoError(t, err)
	child, err := svc.Create(testActor, tenant.ID, OrganizationInput{ParentID: &root.ID, Code: "rd", Name: "研发部"})
	require.NoError(t, err)

	// 有子组织
	err = svc.Delete(testActor, tenant.ID, root.ID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeOrganizationHasChildren, appErr.Code)

	// 有成员
	user := createTestUser(t, db, tenant.ID, "alice")
	require.NoError(t, svc.AddMember(testActor, tenant.ID, child.ID, user.ID, "工程师", true))

	err = svc.Delete(testActor, tenant.ID, child.ID)
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeOrganizationHasUsers, appErr.Code)

	check, err := svc.CheckDeletable(tenant.ID, child.ID)
	require.NoError(t, err)
	assert.False(t, check.Deletable)
	assert.Equal(t, int64(0), check.ChildCount)
	assert.Equal(t, int64(1), check.UserCount)

	// 移除成员后即可删除
	require.NoError(t, svc.RemoveMember(testActor, tenant.ID, child.ID, user.ID))
	check, err = svc.CheckDeletable(tenant.ID, child.ID)
	require.NoError(t, err)
	assert.True(t, check.Deletable)
	require.NoError(t, svc.Delete(testActor, tenant.ID, child.ID))
}

func TestOrganizationMembers(t *testing.T) {
	svc, tenant, db := newOrgFixture(t)

	first, err := svc.Create(testActor, tenant.ID, OrganizationInput{Code: "aa", Name: "部门甲"})
	require.NoError(t, err)
	second, err := svc.Create(testActor, tenant.ID, OrganizationInput{Code: "bb", Name: "部门乙"})
	require.NoError(t, err)
	user := createTestUser(t, db, tenant.ID, "alice")

	require.NoError(t, svc.AddMember(testActor, tenant.ID, first.ID, user.ID, "工程师", true))

	// 重复加入同一组织冲突
	err = svc.AddMember(testActor, tenant.ID, first.ID, user.ID, "工程师", false)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)

	// 以主组织身份加入第二个组织后，第一条记录的主组织标记被清除
	require.NoError(t, svc.AddMember(testActor, tenant.ID, second.ID, user.ID, "兼职", true))

	var mains []models.UserOrganization
	require.NoError(t, db.Where("user_id = ? AND is_main = ?", user.ID, true).Find(&mains).Error)
	require.Len(t, mains, 1)
	assert.Equal(t, second.ID, mains[0].OrganizationID)

	members, err := svc.GetMembers(tenant.ID, first.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, user.ID, members[0].UserID)

	// 移除不存在的成员
	err = svc.RemoveMember(testActor, tenant.ID, first.ID, 999)
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestOrganizationGetTreeCounts(t *testing.T) {
	svc, tenant, db := newOrgFixture(t)

	root, err := svc.Create(testActor, tenant.ID, OrganizationInput{Code: "hq", Name: "总部", SortOrder: 1})
	require.NoError(t, err)
	leader := createTestUser(t, db, tenant.ID, "boss")
	_, err = svc.Update(testActor, tenant.ID, root.ID, OrganizationInput{
		Code: "hq", Name: "总部", LeaderID: &leader.ID, SortOrder: 1,
	})
	require.NoError(t, err)

	child, err := svc.Create(testActor, tenant.ID, OrganizationInput{ParentID: &root.ID, Code: "rd", Name: "研发部"})
	require.NoError(t, err)
	member := createTestUser(t, db, tenant.ID, "alice")
	require.NoError(t, svc.AddMember(testActor, tenant.ID, child.ID, member.ID, "", false))

	tree, err := svc.GetTree(tenant.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Equal(t, 1, tree[0].ChildCount)
	require.NotNil(t, tree[0].LeaderInfo)
	assert.Equal(t, "boss", tree[0].LeaderInfo.Username)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, int64(1), tree[0].Children[0].UserCount)
}
