package services

import (
	"errors"
	"unicode/utf8"

	"adminhub/internal/models"
	"adminhub/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TenantService 租户生命周期服务
//
// 状态机：active / inactive / suspended 之间任意切换，但每次切换都必须由
// 管理员显式调用，不存在自动流转。删除与改码受守卫规则保护。
type TenantService struct {
	db    *gorm.DB
	audit *AuditService
}

// TenantStats 租户统计信息
type TenantStats struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Inactive  int64 `json:"inactive"`
	Suspended int64 `json:"suspended"`
}

func NewTenantService(db *gorm.DB, audit *AuditService) *TenantService {
	return &TenantService{db: db, audit: audit}
}

// GetWithFiltersAndPage 组合查询（分页版本）
func (s *TenantService) GetWithFiltersAndPage(status, keyword string, page, pageSize int) ([]*models.Tenant, int64, error) {
	var tenants []*models.Tenant
	var total int64

	query := s.db.Model(&models.Tenant{})

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword != "" {
		pattern := "%" + keyword + "%"
		query = query.Where("name LIKE ? OR code LIKE ?", pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Find(&tenants).Error; err != nil {
		return nil, 0, err
	}

	return tenants, total, nil
}

// Create 创建租户
func (s *TenantService) Create(actor Actor, name, code string, settings datatypes.JSONMap) (*models.Tenant, error) {
	if err := s.validateName(name); err != nil {
		return nil, err
	}
	if err := s.validateCode(code); err != nil {
		return nil, err
	}

	tenant := &models.Tenant{
		Name:     name,
		Code:     code,
		Status:   models.TenantStatusActive,
		Settings: settings,
	}

	if err := s.db.Create(tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.NewConflict(apperrors.CodeTenantCodeExists, "租户代码已存在")
		}
		return nil, err
	}

	s.audit.RecordChange(tenant.ID, actor.UserID, actor.Username, "tenant", "create", tenant.ID, nil, tenant)
	return tenant, nil
}

// GetByID 根据ID获取租户
func (s *TenantService) GetByID(id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound(apperrors.CodeTenantNotFound, "租户不存在")
		}
		return nil, err
	}
	return &tenant, nil
}

// GetByCode 根据代码获取租户
func (s *TenantService) GetByCode(code string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.Where("code = ?", code).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound(apperrors.CodeTenantNotFound, "租户不存在")
		}
		return nil, err
	}
	return &tenant, nil
}

// Update 更新租户 - 默认租户的code不可修改；code冲突返回409
func (s *TenantService) Update(actor Actor, id uint, name, code string, settings datatypes.JSONMap) (*models.Tenant, error) {
	tenant, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.validateName(name); err != nil {
		return nil, err
	}

	old := *tenant

	if code != "" && code != tenant.Code {
		if tenant.IsDefault() {
			return nil, apperrors.NewForbidden(apperrors.CodeDefaultTenantCodeNotModifiable, "默认租户代码不可修改")
		}
		if err := s.validateCode(code); err != nil {
			return nil, err
		}

		var count int64
		s.db.Model(&models.Tenant{}).Where("code = ? AND id <> ?", code, id).Count(&count)
		if count > 0 {
			return nil, apperrors.NewConflict(apperrors.CodeTenantCodeExists, "租户代码已存在")
		}
		tenant.Code = code
	}

	tenant.Name = name
	if settings != nil {
		tenant.Settings = settings
	}

	if err := s.db.Save(tenant).Error; err != nil {
		// 并发改码时依赖唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.NewConflict(apperrors.CodeTenantCodeExists, "租户代码已存在")
		}
		return nil, err
	}

	s.audit.RecordChange(tenant.ID, actor.UserID, actor.Username, "tenant", "update", tenant.ID, &old, tenant)
	return tenant, nil
}

// ChangeStatus 切换租户状态 - 任意状态间均可切换，但必须显式调用
func (s *TenantService) ChangeStatus(actor Actor, id uint, status string) (*models.Tenant, error) {
	if !s.IsValidStatus(status) {
		return nil, apperrors.NewValidation("状态只能是active、inactive或suspended")
	}

	tenant, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	old := *tenant
	tenant.Status = status

	if err := s.db.Save(tenant).Error; err != nil {
		return nil, err
	}

	s.audit.RecordChange(tenant.ID, actor.UserID, actor.Username, "tenant", "status:"+status, tenant.ID, &old, tenant)
	return tenant, nil
}

// Delete 删除租户 - 默认租户不可删；仍有用户的租户不可删
func (s *TenantService) Delete(actor Actor, id uint) error {
	tenant, err := s.GetByID(id)
	if err != nil {
		return err
	}

	if tenant.IsDefault() {
		return apperrors.NewForbidden(apperrors.CodeDefaultTenantNotDeletable, "默认租户不可删除")
	}

	userCount, err := s.UserCount(id)
	if err != nil {
		return err
	}
	if userCount > 0 {
		return apperrors.NewForbidden(apperrors.CodeTenantHasUsers, "租户下仍有用户，不可删除")
	}

	if err := s.db.Delete(&models.Tenant{}, id).Error; err != nil {
		return err
	}

	s.audit.RecordChange(tenant.ID, actor.UserID, actor.Username, "tenant", "delete", tenant.ID, tenant, nil)
	return nil
}

// UserCount 统计租户下的用户数（软删除用户不计入）
func (s *TenantService) UserCount(tenantID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.User{}).
		Where("tenant_id = ? AND status <> ?", tenantID, models.UserStatusDeleted).
		Count(&count).Error
	return count, err
}

// GetStats 获取租户统计
func (s *TenantService) GetStats() (*TenantStats, error) {
	stats := &TenantStats{}

	s.db.Model(&models.Tenant{}).Count(&stats.Total)
	s.db.Model(&models.Tenant{}).Where("status = ?", models.TenantStatusActive).Count(&stats.Active)
	s.db.Model(&models.Tenant{}).Where("status = ?", models.TenantStatusInactive).Count(&stats.Inactive)
	s.db.Model(&models.Tenant{}).Where("status = ?", models.TenantStatusSuspended).Count(&stats.Suspended)

	return stats, nil
}

// IsValidStatus 检查租户状态是否有效
func (s *TenantService) IsValidStatus(status string) bool {
	switch status {
	case models.TenantStatusActive, models.TenantStatusInactive, models.TenantStatusSuspended:
		return true
	default:
		return false
	}
}

// ========== 验证相关方法 ==========

func (s *TenantService) validateName(name string) error {
	runeCount := utf8.RuneCountInString(name)
	if runeCount < 2 || runeCount > 50 {
		return apperrors.NewValidation("租户名称长度必须在2-50个字符之间")
	}
	return nil
}

func (s *TenantService) validateCode(code string) error {
	if len(code) < 2 || len(code) > 20 {
		return apperrors.NewValidation("租户代码长度必须在2-20个字符之间")
	}
	for _, r := range code {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return apperrors.NewValidation("租户代码只能包含字母和数字")
		}
	}
	return nil
}
