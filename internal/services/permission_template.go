package services

import (
	"encoding/json"
	"errors"

	"adminhub/internal/models"
	"adminhub/pkg/apperrors"

	"gorm.io/gorm"
)

// PermissionTemplateService 权限模板服务 - 命名权限集合的批量授权
type PermissionTemplateService struct {
	db    *gorm.DB
	audit *AuditService
	roles *RoleService
}

func NewPermissionTemplateService(db *gorm.DB, audit *AuditService, roles *RoleService) *PermissionTemplateService {
	return &PermissionTemplateService{db: db, audit: audit, roles: roles}
}

// Create 创建模板 - 名称必填，权限代码必须至少解析出一个有效权限
func (s *PermissionTemplateService) Create(actor Actor, tenantID uint, name, description string, permissionCodes []string) (*models.PermissionTemplate, error) {
	if name == "" {
		return nil, apperrors.NewValidation("模板名称不能为空")
	}

	ids, err := s.resolveCodes(tenantID, permissionCodes)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, apperrors.NewValidation("权限代码列表没有解析出任何有效权限")
	}

	codesJSON, err := json.Marshal(permissionCodes)
	if err != nil {
		return nil, err
	}

	template := &models.PermissionTemplate{
		TenantID:        tenantID,
		Name:            name,
		Description:     description,
		PermissionCodes: codesJSON,
	}

	if err := s.db.Create(template).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.NewConflict(apperrors.CodeConflict, "模板名称已存在")
		}
		return nil, err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "permission_template", "create", template.ID, nil, template)
	return template, nil
}

// GetByID 根据ID获取模板（租户隔离）
func (s *PermissionTemplateService) GetByID(tenantID, id uint) (*models.PermissionTemplate, error) {
	var template models.PermissionTemplate
	err := s.db.Where("tenant_id = ?", tenantID).First(&template, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound(apperrors.CodeNotFound, "权限模板不存在")
		}
		return nil, err
	}
	return &template, nil
}

// GetByTenant 获取租户全部模板
func (s *PermissionTemplateService) GetByTenant(tenantID uint) ([]*models.PermissionTemplate, error) {
	var templates []*models.PermissionTemplate
	err := s.db.Where("tenant_id = ?", tenantID).Order("id").Find(&templates).Error
	return templates, err
}

// Apply 把模板应用到角色 - 追加授权，幂等（重复应用不产生重复授权）
func (s *PermissionTemplateService) Apply(actor Actor, tenantID, templateID, roleID uint) error {
	template, err := s.GetByID(tenantID, templateID)
	if err != nil {
		return err
	}

	var codes []string
	if err := json.Unmarshal(template.PermissionCodes, &codes); err != nil {
		return apperrors.NewInternal("模板权限代码解析失败")
	}

	ids, err := s.resolveCodes(tenantID, codes)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return apperrors.NewValidation("模板中没有任何有效权限")
	}

	if err := s.roles.AddPermissions(actor, tenantID, roleID, ids); err != nil {
		return err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "permission_template", "apply", templateID, nil, roleID)
	return nil
}

// Delete 删除模板 - 系统模板不可删
func (s *PermissionTemplateService) Delete(actor Actor, tenantID, id uint) error {
	template, err := s.GetByID(tenantID, id)
	if err != nil {
		return err
	}

	if template.IsSystem {
		return apperrors.NewForbidden(apperrors.CodeSystemResourceProtected, "系统模板不可删除")
	}

	if err := s.db.Delete(&models.PermissionTemplate{}, id).Error; err != nil {
		return err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "permission_template", "delete", id, template, nil)
	return nil
}

// resolveCodes 把权限代码解析为本租户的权限ID，无效代码直接忽略
func (s *PermissionTemplateService) resolveCodes(tenantID uint, codes []string) ([]uint, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	var ids []uint
	err := s.db.Model(&models.Permission{}).
		Where("tenant_id = ? AND code IN ?", tenantID, codes).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
