package services

import (
	"errors"
	"unicode/utf8"

	"adminhub/internal/models"
	"adminhub/pkg/apperrors"
	"adminhub/pkg/cache"
	"adminhub/pkg/logger"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleService 角色服务
type RoleService struct {
	db    *gorm.DB
	audit *AuditService
	cache *cache.RedisCache // 可为nil（单元测试不依赖Redis）
}

func NewRoleService(db *gorm.DB, audit *AuditService, redisCache *cache.RedisCache) *RoleService {
	return &RoleService{db: db, audit: audit, cache: redisCache}
}

// ========== 基础CRUD方法 ==========

// RoleInput 创建/更新角色的入参
type RoleInput struct {
	ParentID    *uint
	Code        string
	Name        string
	Description string
	Status      string
}

// Create 创建角色
func (s *RoleService) Create(actor Actor, tenantID uint, input RoleInput) (*models.Role, error) {
	if err := s.validateCode(input.Code); err != nil {
		return nil, err
	}
	if err := s.validateName(input.Name); err != nil {
		return nil, err
	}
	if input.ParentID != nil {
		if err := s.validateParent(tenantID, 0, *input.ParentID); err != nil {
			return nil, err
		}
	}

	role := &models.Role{
		TenantID:    tenantID,
		ParentID:    input.ParentID,
		Code:        input.Code,
		Name:        input.Name,
		Description: input.Description,
		Status:      models.RoleStatusActive,
	}

	if err := s.db.Create(role).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.NewConflict(apperrors.CodeConflict, "角色代码或名称已存在")
		}
		return nil, err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "role", "create", role.ID, nil, role)
	return role, nil
}

// GetByID 根据ID获取角色（租户隔离）
func (s *RoleService) GetByID(tenantID, id uint) (*models.Role, error) {
	var role models.Role
	err := s.db.Where("tenant_id = ?", tenantID).Preload("Permissions").First(&role, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound(apperrors.CodeNotFound, "角色不存在")
		}
		return nil, err
	}
	return &role, nil
}

// GetByTenantWithPage 分页获取租户角色
func (s *RoleService) GetByTenantWithPage(tenantID uint, status string, page, pageSize int) ([]*models.Role, int64, error) {
	var roles []*models.Role
	var total int64

	query := s.db.Model(&models.Role{}).Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Permissions").Offset(offset).Limit(pageSize).Find(&roles).Error
	if err != nil {
		return nil, 0, err
	}

	return roles, total, nil
}

// Update 更新角色
func (s *RoleService) Update(actor Actor, tenantID, id uint, input RoleInput) (*models.Role, error) {
	role, err := s.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}

	// 系统角色不能修改
	if role.IsSystem {
		return nil, apperrors.NewForbidden(apperrors.CodeSystemResourceProtected, "系统角色不允许修改")
	}

	if err := s.validateName(input.Name); err != nil {
		return nil, err
	}
	if input.Status != "" && input.Status != models.RoleStatusActive && input.Status != models.RoleStatusInactive {
		return nil, apperrors.NewValidation("状态只能是active或inactive")
	}
	if input.ParentID != nil {
		if err := s.validateParent(tenantID, id, *input.ParentID); err != nil {
			return nil, err
		}
	}

	old := *role
	role.ParentID = input.ParentID
	role.Name = input.Name
	role.Description = input.Description
	if input.Status != "" {
		role.Status = input.Status
	}

	if err := s.db.Save(role).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.NewConflict(apperrors.CodeConflict, "角色名称已存在")
		}
		return nil, err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "role", "update", role.ID, &old, role)
	s.invalidateRoleUsers(tenantID, id)
	return role, nil
}

// Delete 删除角色 - 系统角色和仍有用户的角色不可删
func (s *RoleService) Delete(actor Actor, tenantID, id uint) error {
	role, err := s.GetByID(tenantID, id)
	if err != nil {
		return err
	}

	if role.IsSystem {
		return apperrors.NewForbidden(apperrors.CodeSystemResourceProtected, "系统角色不允许删除")
	}

	var userCount int64
	s.db.Model(&models.User{}).
		Where("tenant_id = ? AND role_id = ? AND status <> ?", tenantID, id, models.UserStatusDeleted).
		Count(&userCount)
	if userCount > 0 {
		return apperrors.NewForbidden(apperrors.CodeForbidden, "角色下仍有用户，不可删除")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND role_id = ?", tenantID, id).
			Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Role{}, id).Error; err != nil {
			return err
		}
		s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "role", "delete", id, role, nil)
		return nil
	})
}

// ========== 权限管理方法 ==========

// AssignPermissions 为角色全量设置权限（替换语义）
func (s *RoleService) AssignPermissions(actor Actor, tenantID, roleID uint, permissionIDs []uint) error {
	role, err := s.GetByID(tenantID, roleID)
	if err != nil {
		return err
	}

	// 只接受本租户的权限ID
	var permissions []models.Permission
	if len(permissionIDs) > 0 {
		err = s.db.Where("tenant_id = ? AND id IN ?", tenantID, permissionIDs).Find(&permissions).Error
		if err != nil {
			return err
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND role_id = ?", tenantID, roleID).
			Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		if len(permissions) == 0 {
			return nil
		}

		grants := make([]models.RolePermission, 0, len(permissions))
		for _, p := range permissions {
			grants = append(grants, models.RolePermission{
				TenantID:     tenantID,
				RoleID:       roleID,
				PermissionID: p.ID,
			})
		}
		return tx.Create(&grants).Error
	})
	if err != nil {
		return err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "role", "assign_permissions", roleID, role.Permissions, permissionIDs)
	s.invalidateRoleUsers(tenantID, roleID)
	return nil
}

// AddPermissions 为角色追加权限 - 依赖唯一索引实现幂等，重复授权按无操作处理
func (s *RoleService) AddPermissions(actor Actor, tenantID, roleID uint, permissionIDs []uint) error {
	if _, err := s.GetByID(tenantID, roleID); err != nil {
		return err
	}

	var permissions []models.Permission
	err := s.db.Where("tenant_id = ? AND id IN ?", tenantID, permissionIDs).Find(&permissions).Error
	if err != nil {
		return err
	}
	if len(permissions) == 0 {
		return nil
	}

	grants := make([]models.RolePermission, 0, len(permissions))
	for _, p := range permissions {
		grants = append(grants, models.RolePermission{
			TenantID:     tenantID,
			RoleID:       roleID,
			PermissionID: p.ID,
		})
	}

	// ON CONFLICT DO NOTHING：并发重复授权也不会报错
	err = s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&grants).Error
	if err != nil {
		return err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "role", "add_permissions", roleID, nil, permissionIDs)
	s.invalidateRoleUsers(tenantID, roleID)
	return nil
}

// GetRolePermissions 获取角色的权限
func (s *RoleService) GetRolePermissions(tenantID, roleID uint) ([]models.Permission, error) {
	role, err := s.GetByID(tenantID, roleID)
	if err != nil {
		return nil, err
	}
	return role.Permissions, nil
}

// ========== 数据权限管理 ==========

// AttachDataRule 给角色挂载数据权限规则
func (s *RoleService) AttachDataRule(actor Actor, tenantID, roleID, ruleID uint) error {
	if _, err := s.GetByID(tenantID, roleID); err != nil {
		return err
	}

	var rule models.DataPermissionRule
	if err := s.db.Where("tenant_id = ?", tenantID).First(&rule, ruleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound(apperrors.CodeNotFound, "数据权限规则不存在")
		}
		return err
	}

	link := models.RoleDataPermission{TenantID: tenantID, RoleID: roleID, RuleID: ruleID}
	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
	if err != nil {
		return err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "role", "attach_data_rule", roleID, nil, ruleID)
	return nil
}

// DetachDataRule 取消角色的数据权限规则
func (s *RoleService) DetachDataRule(actor Actor, tenantID, roleID, ruleID uint) error {
	result := s.db.Where("tenant_id = ? AND role_id = ? AND rule_id = ?", tenantID, roleID, ruleID).
		Delete(&models.RoleDataPermission{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFound(apperrors.CodeNotFound, "角色未挂载该规则")
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "role", "detach_data_rule", roleID, ruleID, nil)
	return nil
}

// ========== 内部方法 ==========

// invalidateRoleUsers 角色或其授权变更后，失效该角色全部用户的权限缓存
func (s *RoleService) invalidateRoleUsers(tenantID, roleID uint) {
	if s.cache == nil {
		return
	}

	var userIDs []uint
	err := s.db.Model(&models.User{}).
		Where("tenant_id = ? AND role_id = ?", tenantID, roleID).
		Pluck("id", &userIDs).Error
	if err != nil {
		logger.GetLogger().Warnf("权限缓存失效失败: role=%d err=%v", roleID, err)
		return
	}
	if err := s.cache.InvalidateUsersPermissions(userIDs); err != nil {
		logger.GetLogger().Warnf("权限缓存失效失败: role=%d err=%v", roleID, err)
	}
}

// ========== 验证方法 ==========

func (s *RoleService) validateCode(code string) error {
	if len(code) < 2 || len(code) > 50 {
		return apperrors.NewValidation("角色代码长度必须在2-50个字符之间")
	}
	for _, r := range code {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_') {
			return apperrors.NewValidation("角色代码只能包含字母、数字和下划线")
		}
	}
	return nil
}

func (s *RoleService) validateName(name string) error {
	runeCount := utf8.RuneCountInString(name)
	if runeCount < 2 || runeCount > 50 {
		return apperrors.NewValidation("角色名称长度必须在2-50个字符之间")
	}
	return nil
}

// validateParent 校验上级角色：必须同租户存在，且不构成环
func (s *RoleService) validateParent(tenantID, id, parentID uint) error {
	if parentID == id {
		return apperrors.NewValidation("上级角色不能是自身")
	}

	var parent models.Role
	err := s.db.Where("tenant_id = ?", tenantID).First(&parent, parentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewValidation("上级角色不存在或不属于当前租户")
		}
		return err
	}

	current := &parent
	for depth := 0; depth < maxTreeDepth && current.ParentID != nil; depth++ {
		if *current.ParentID == id {
			return apperrors.NewValidation("上级角色不能是自身的下级")
		}
		var next models.Role
		if err := s.db.Where("tenant_id = ?", tenantID).First(&next, *current.ParentID).Error; err != nil {
			break
		}
		current = &next
	}
	return nil
}
