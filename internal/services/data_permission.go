package services

import (
	"errors"

	"adminhub/internal/models"
	"adminhub/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DataPermissionService 数据权限规则服务 - 行级可见范围管理
type DataPermissionService struct {
	db    *gorm.DB
	audit *AuditService
}

func NewDataPermissionService(db *gorm.DB, audit *AuditService) *DataPermissionService {
	return &DataPermissionService{db: db, audit: audit}
}

// 规则类型的宽松程度排序，解析生效规则时取最宽的一条
var ruleTypeRank = map[string]int{
	models.DataRuleAll:    5,
	models.DataRuleCustom: 4,
	models.DataRuleOrg:    3,
	models.DataRuleDept:   2,
	models.DataRuleSelf:   1,
}

// Create 创建数据权限规则
func (s *DataPermissionService) Create(actor Actor, tenantID uint, name, description, ruleType string, scope datatypes.JSON) (*models.DataPermissionRule, error) {
	if name == "" {
		return nil, apperrors.NewValidation("规则名称不能为空")
	}
	if _, ok := ruleTypeRank[ruleType]; !ok {
		return nil, apperrors.NewValidation("规则类型只能是all、org、dept、self或custom")
	}
	if ruleType == models.DataRuleCustom && len(scope) == 0 {
		return nil, apperrors.NewValidation("custom类型规则必须填写scope")
	}

	rule := &models.DataPermissionRule{
		TenantID:    tenantID,
		Name:        name,
		Description: description,
		RuleType:    ruleType,
		Scope:       scope,
		Status:      models.OrganizationStatusActive,
	}

	if err := s.db.Create(rule).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.NewConflict(apperrors.CodeConflict, "规则名称已存在")
		}
		return nil, err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "data_permission", "create", rule.ID, nil, rule)
	return rule, nil
}

// GetByID 根据ID获取规则（租户隔离）
func (s *DataPermissionService) GetByID(tenantID, id uint) (*models.DataPermissionRule, error) {
	var rule models.DataPermissionRule
	err := s.db.Where("tenant_id = ?", tenantID).First(&rule, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound(apperrors.CodeNotFound, "数据权限规则不存在")
		}
		return nil, err
	}
	return &rule, nil
}

// GetByTenant 获取租户全部规则
func (s *DataPermissionService) GetByTenant(tenantID uint) ([]*models.DataPermissionRule, error) {
	var rules []*models.DataPermissionRule
	err := s.db.Where("tenant_id = ?", tenantID).Order("id").Find(&rules).Error
	return rules, err
}

// Delete 删除规则 - 仍被角色引用时拒绝
func (s *DataPermissionService) Delete(actor Actor, tenantID, id uint) error {
	rule, err := s.GetByID(tenantID, id)
	if err != nil {
		return err
	}

	var linkCount int64
	s.db.Model(&models.RoleDataPermission{}).
		Where("tenant_id = ? AND rule_id = ?", tenantID, id).
		Count(&linkCount)
	if linkCount > 0 {
		return apperrors.NewForbidden(apperrors.CodeForbidden, "规则仍被角色引用，不可删除")
	}

	if err := s.db.Delete(&models.DataPermissionRule{}, id).Error; err != nil {
		return err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "data_permission", "delete", id, rule, nil)
	return nil
}

// ResolveForUser 解析用户生效的数据权限规则
//
// 用户可能通过角色挂到多条规则，取最宽松的一条；没有任何规则时默认self。
func (s *DataPermissionService) ResolveForUser(tenantID, userID uint) (*models.DataPermissionRule, error) {
	var user models.User
	err := s.db.Where("tenant_id = ?", tenantID).First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound(apperrors.CodeNotFound, "用户不存在")
		}
		return nil, err
	}

	fallback := &models.DataPermissionRule{
		TenantID: tenantID,
		Name:     "默认",
		RuleType: models.DataRuleSelf,
	}
	if user.RoleID == nil {
		return fallback, nil
	}

	var rules []models.DataPermissionRule
	err = s.db.
		Joins("JOIN role_data_permissions ON data_permission_rules.id = role_data_permissions.rule_id").
		Where("role_data_permissions.tenant_id = ? AND role_data_permissions.role_id = ?", tenantID, *user.RoleID).
		Where("data_permission_rules.status = ?", models.OrganizationStatusActive).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return fallback, nil
	}

	best := &rules[0]
	for i := 1; i < len(rules); i++ {
		if ruleTypeRank[rules[i].RuleType] > ruleTypeRank[best.RuleType] {
			best = &rules[i]
		}
	}
	return best, nil
}
