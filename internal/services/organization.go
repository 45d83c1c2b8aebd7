package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"adminhub/internal/models"
	"adminhub/pkg/apperrors"

	"gorm.io/gorm"
)

// OrganizationService 组织服务 - 组织树构建、成员统计与删除守卫
type OrganizationService struct {
	db    *gorm.DB
	audit *AuditService
}

// LeaderSummary 负责人摘要
type LeaderSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// OrganizationNode 组织树节点
type OrganizationNode struct {
	models.Organization
	UserCount  int64               `json:"user_count"`  // 本组织成员数
	ChildCount int                 `json:"child_count"` // 直接子组织数
	LeaderInfo *LeaderSummary      `json:"leader_info,omitempty"`
	Children   []*OrganizationNode `json:"children,omitempty"`
}

// DeletableCheck 删除前置检查结果
type DeletableCheck struct {
	Deletable  bool  `json:"deletable"`
	ChildCount int64 `json:"child_count"`
	UserCount  int64 `json:"user_count"`
}

func NewOrganizationService(db *gorm.DB, audit *AuditService) *OrganizationService {
	return &OrganizationService{db: db, audit: audit}
}

// BuildOrganizationTree 把扁平组织列表组装成森林并填充统计字段
//
// 树构建契约与权限树一致：parent_id 为空或指向缺失记录时按根处理，
// 每层按 sort_order、id 排序。child_count 只统计直接子节点。
func BuildOrganizationTree(orgs []*models.Organization, userCounts map[uint]int64, leaders map[uint]*LeaderSummary) []*OrganizationNode {
	nodes := make(map[uint]*OrganizationNode, len(orgs))
	for _, o := range orgs {
		nodes[o.ID] = &OrganizationNode{
			Organization: *o,
			UserCount:    userCounts[o.ID],
			LeaderInfo:   leaders[o.ID],
		}
	}

	var roots []*OrganizationNode
	for _, o := range orgs {
		node := nodes[o.ID]
		if o.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*o.ParentID]
		if !ok || *o.ParentID == o.ID {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	for _, n := range nodes {
		n.ChildCount = len(n.Children)
	}

	sortOrganizationNodes(roots)
	return roots
}

func sortOrganizationNodes(nodes []*OrganizationNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].ID < nodes[j].ID
	})
	for _, n := range nodes {
		sortOrganizationNodes(n.Children)
	}
}

// ========== 查询方法 ==========

// GetByID 根据ID获取组织（租户隔离）
func (s *OrganizationService) GetByID(tenantID, id uint) (*models.Organization, error) {
	var org models.Organization
	err := s.db.Where("tenant_id = ?", tenantID).First(&org, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound(apperrors.CodeNotFound, "组织不存在")
		}
		return nil, err
	}
	return &org, nil
}

// GetTree 获取组织树（带成员数、子组织数和负责人摘要）
func (s *OrganizationService) GetTree(tenantID uint) ([]*OrganizationNode, error) {
	var orgs []*models.Organization
	err := s.db.Where("tenant_id = ?", tenantID).Order("sort_order, id").Find(&orgs).Error
	if err != nil {
		return nil, err
	}

	userCounts, err := s.memberCounts(tenantID)
	if err != nil {
		return nil, err
	}

	leaders, err := s.leaderSummaries(orgs)
	if err != nil {
		return nil, err
	}

	return BuildOrganizationTree(orgs, userCounts, leaders), nil
}

// memberCounts 按组织聚合成员数
func (s *OrganizationService) memberCounts(tenantID uint) (map[uint]int64, error) {
	type orgCount struct {
		OrganizationID uint
		Count          int64
	}

	var rows []orgCount
	err := s.db.Model(&models.UserOrganization{}).
		Select("user_organizations.organization_id, COUNT(*) as count").
		Joins("JOIN organizations ON organizations.id = user_organizations.organization_id").
		Where("organizations.tenant_id = ?", tenantID).
		Group("user_organizations.organization_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.OrganizationID] = row.Count
	}
	return counts, nil
}

// leaderSummaries 批量解析负责人信息
func (s *OrganizationService) leaderSummaries(orgs []*models.Organization) (map[uint]*LeaderSummary, error) {
	leaderIDs := make([]uint, 0)
	for _, o := range orgs {
		if o.LeaderID != nil {
			leaderIDs = append(leaderIDs, *o.LeaderID)
		}
	}
	if len(leaderIDs) == 0 {
		return map[uint]*LeaderSummary{}, nil
	}

	var users []models.User
	if err := s.db.Where("id IN ?", leaderIDs).Find(&users).Error; err != nil {
		return nil, err
	}

	byUserID := make(map[uint]*LeaderSummary, len(users))
	for i := range users {
		byUserID[users[i].ID] = &LeaderSummary{
			ID:       users[i].ID,
			Username: users[i].Username,
			Name:     users[i].Name,
		}
	}

	result := make(map[uint]*LeaderSummary)
	for _, o := range orgs {
		if o.LeaderID != nil {
			if summary, ok := byUserID[*o.LeaderID]; ok {
				result[o.ID] = summary
			}
		}
	}
	return result, nil
}

// ========== 变更方法 ==========

// OrganizationInput 创建/更新组织的入参
type OrganizationInput struct {
	ParentID  *uint
	Code      string
	Name      string
	LeaderID  *uint
	SortOrder int
}

// Create 创建组织 - path 在拿到ID后回写
func (s *OrganizationService) Create(actor Actor, tenantID uint, input OrganizationInput) (*models.Organization, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	parentPath := ""
	if input.ParentID != nil {
		parent, err := s.GetByID(tenantID, *input.ParentID)
		if err != nil {
			return nil, apperrors.NewValidation("上级组织不存在或不属于当前租户")
		}
		parentPath = parent.Path
	}
	if input.LeaderID != nil {
		if err := s.validateLeader(tenantID, *input.LeaderID); err != nil {
			return nil, err
		}
	}

	org := &models.Organization{
		TenantID:  tenantID,
		ParentID:  input.ParentID,
		Code:      input.Code,
		Name:      input.Name,
		LeaderID:  input.LeaderID,
		SortOrder: input.SortOrder,
		Status:    models.OrganizationStatusActive,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return err
		}
		org.Path = fmt.Sprintf("%s/%d", parentPath, org.ID)
		return tx.Model(org).Update("path", org.Path).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.NewConflict(apperrors.CodeConflict, "组织代码已存在")
		}
		return nil, err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "organization", "create", org.ID, nil, org)
	return org, nil
}

// Update 更新组织 - 变更上级时校验不落入自身子树，并重写全部后代的path
func (s *OrganizationService) Update(actor Actor, tenantID, id uint, input OrganizationInput) (*models.Organization, error) {
	org, err := s.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	if input.LeaderID != nil {
		if err := s.validateLeader(tenantID, *input.LeaderID); err != nil {
			return nil, err
		}
	}

	old := *org
	oldPath := org.Path
	newParentPath := ""

	parentChanged := !uintPtrEqual(org.ParentID, input.ParentID)
	if parentChanged && input.ParentID != nil {
		if *input.ParentID == id {
			return nil, apperrors.NewValidation("上级组织不能是自身")
		}
		parent, err := s.GetByID(tenantID, *input.ParentID)
		if err != nil {
			return nil, apperrors.NewValidation("上级组织不存在或不属于当前租户")
		}
		// path 前缀判断即可发现环：新上级在自身子树内时必然带有本节点前缀
		if parent.Path == oldPath || strings.HasPrefix(parent.Path, oldPath+"/") {
			return nil, apperrors.NewValidation("上级组织不能是自身的下级")
		}
		newParentPath = parent.Path
	}

	org.ParentID = input.ParentID
	org.Code = input.Code
	org.Name = input.Name
	org.LeaderID = input.LeaderID
	org.SortOrder = input.SortOrder

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if parentChanged {
			newPath := fmt.Sprintf("%s/%d", newParentPath, id)
			org.Path = newPath

			// 重写后代路径：旧前缀替换为新前缀
			var descendants []models.Organization
			if err := tx.Where("tenant_id = ? AND path LIKE ? AND id <> ?", tenantID, oldPath+"/%", id).
				Find(&descendants).Error; err != nil {
				return err
			}
			for i := range descendants {
				updated := newPath + strings.TrimPrefix(descendants[i].Path, oldPath)
				if err := tx.Model(&descendants[i]).Update("path", updated).Error; err != nil {
					return err
				}
			}
		}
		return tx.Save(org).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.NewConflict(apperrors.CodeConflict, "组织代码已存在")
		}
		return nil, err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "organization", "update", org.ID, &old, org)
	return org, nil
}

// CheckDeletable 删除前置检查 - 返回子组织数与成员数，供前端提示
func (s *OrganizationService) CheckDeletable(tenantID, id uint) (*DeletableCheck, error) {
	if _, err := s.GetByID(tenantID, id); err != nil {
		return nil, err
	}

	check := &DeletableCheck{}
	err := s.db.Model(&models.Organization{}).
		Where("tenant_id = ? AND parent_id = ?", tenantID, id).
		Count(&check.ChildCount).Error
	if err != nil {
		return nil, err
	}

	err = s.db.Model(&models.UserOrganization{}).
		Where("organization_id = ?", id).
		Count(&check.UserCount).Error
	if err != nil {
		return nil, err
	}

	check.Deletable = check.ChildCount == 0 && check.UserCount == 0
	return check, nil
}

// Delete 删除组织 - 仍有子组织或成员时拒绝（返回具体计数便于提示）
func (s *OrganizationService) Delete(actor Actor, tenantID, id uint) error {
	org, err := s.GetByID(tenantID, id)
	if err != nil {
		return err
	}

	check, err := s.CheckDeletable(tenantID, id)
	if err != nil {
		return err
	}
	if check.ChildCount > 0 {
		return apperrors.NewForbidden(apperrors.CodeOrganizationHasChildren,
			fmt.Sprintf("组织下仍有%d个子组织，不可删除", check.ChildCount))
	}
	if check.UserCount > 0 {
		return apperrors.NewForbidden(apperrors.CodeOrganizationHasUsers,
			fmt.Sprintf("组织下仍有%d名成员，不可删除", check.UserCount))
	}

	if err := s.db.Delete(&models.Organization{}, id).Error; err != nil {
		return err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "organization", "delete", id, org, nil)
	return nil
}

// ========== 成员管理 ==========

// AddMember 添加组织成员 - is_main 唯一性由应用层维护
func (s *OrganizationService) AddMember(actor Actor, tenantID, orgID, userID uint, position string, isMain bool) error {
	if _, err := s.GetByID(tenantID, orgID); err != nil {
		return err
	}

	var user models.User
	if err := s.db.Where("tenant_id = ? AND status <> ?", tenantID, models.UserStatusDeleted).
		First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewValidation("用户不存在或不属于当前租户")
		}
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if isMain {
			// 同一用户至多一条主组织记录
			if err := tx.Model(&models.UserOrganization{}).
				Where("user_id = ? AND is_main = ?", userID, true).
				Update("is_main", false).Error; err != nil {
				return err
			}
		}

		membership := &models.UserOrganization{
			UserID:         userID,
			OrganizationID: orgID,
			Position:       position,
			IsMain:         isMain,
		}
		if err := tx.Create(membership).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.NewConflict(apperrors.CodeConflict, "用户已在该组织中")
			}
			return err
		}

		s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "organization", "add_member", orgID, nil, membership)
		return nil
	})
}

// RemoveMember 移除组织成员
func (s *OrganizationService) RemoveMember(actor Actor, tenantID, orgID, userID uint) error {
	if _, err := s.GetByID(tenantID, orgID); err != nil {
		return err
	}

	result := s.db.Where("user_id = ? AND organization_id = ?", userID, orgID).
		Delete(&models.UserOrganization{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFound(apperrors.CodeNotFound, "用户不在该组织中")
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "organization", "remove_member", orgID, userID, nil)
	return nil
}

// GetMembers 获取组织成员列表
func (s *OrganizationService) GetMembers(tenantID, orgID uint) ([]*models.UserOrganization, error) {
	if _, err := s.GetByID(tenantID, orgID); err != nil {
		return nil, err
	}

	var members []*models.UserOrganization
	err := s.db.Where("organization_id = ?", orgID).
		Preload("User").
		Find(&members).Error
	return members, err
}

// ========== 验证方法 ==========

func (s *OrganizationService) validateInput(input OrganizationInput) error {
	nameLen := utf8.RuneCountInString(input.Name)
	if nameLen < 2 || nameLen > 50 {
		return apperrors.NewValidation("组织名称长度必须在2-50个字符之间")
	}
	if len(input.Code) < 2 || len(input.Code) > 50 {
		return apperrors.NewValidation("组织代码长度必须在2-50个字符之间")
	}
	return nil
}

func (s *OrganizationService) validateLeader(tenantID, leaderID uint) error {
	var count int64
	s.db.Model(&models.User{}).
		Where("id = ? AND tenant_id = ? AND status <> ?", leaderID, tenantID, models.UserStatusDeleted).
		Count(&count)
	if count == 0 {
		return apperrors.NewValidation("负责人不存在或不属于当前租户")
	}
	return nil
}

func uintPtrEqual(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
