package services

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"adminhub/internal/models"
	"adminhub/pkg/apperrors"
	"adminhub/pkg/cache"
	"adminhub/pkg/logger"

	"gorm.io/gorm"
)

// UserService 用户服务
type UserService struct {
	db    *gorm.DB
	audit *AuditService
	cache *cache.RedisCache // 可为nil（单元测试不依赖Redis）
}

// 超级角色在权限缓存中的通配标记
const superPermissionMark = "*"

func NewUserService(db *gorm.DB, audit *AuditService, redisCache *cache.RedisCache) *UserService {
	return &UserService{db: db, audit: audit, cache: redisCache}
}

// UserStats 用户统计信息
type UserStats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
	Locked   int64 `json:"locked"`
}

// ========== 基础CRUD方法 ==========

// UserInput 创建/更新用户的入参
type UserInput struct {
	Username string
	Email    string
	Password string
	Name     string
	Phone    *string
	Avatar   *string
	RoleID   *uint
}

// Create 创建用户
func (s *UserService) Create(actor Actor, tenantID uint, input UserInput) (*models.User, error) {
	if err := s.validateUsername(input.Username); err != nil {
		return nil, err
	}
	if err := s.validateEmail(input.Email); err != nil {
		return nil, err
	}
	if err := s.validatePassword(input.Password); err != nil {
		return nil, err
	}
	if err := s.validateDisplayName(input.Name); err != nil {
		return nil, err
	}
	if input.RoleID != nil {
		if err := s.validateRole(tenantID, *input.RoleID); err != nil {
			return nil, err
		}
	}

	user := &models.User{
		TenantID: tenantID,
		RoleID:   input.RoleID,
		Username: input.Username,
		Email:    input.Email,
		Name:     input.Name,
		Phone:    input.Phone,
		Avatar:   input.Avatar,
		Status:   models.UserStatusActive,
	}
	if err := user.SetPassword(input.Password); err != nil {
		return nil, err
	}

	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.NewConflict(apperrors.CodeConflict, "用户名或邮箱已存在")
		}
		return nil, err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "user", "create", user.ID, nil, user)
	return user, nil
}

// GetByID 根据ID获取用户（租户隔离，软删除用户视为不存在）
func (s *UserService) GetByID(tenantID, id uint) (*models.User, error) {
	var user models.User
	err := s.db.Where("tenant_id = ? AND status <> ?", tenantID, models.UserStatusDeleted).
		Preload("Role").
		First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound(apperrors.CodeNotFound, "用户不存在")
		}
		return nil, err
	}
	return &user, nil
}

// GetWithFiltersAndPage 组合查询（分页版本）
func (s *UserService) GetWithFiltersAndPage(tenantID uint, status, keyword string, page, pageSize int) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	query := s.db.Model(&models.User{}).
		Where("tenant_id = ? AND status <> ?", tenantID, models.UserStatusDeleted)

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword != "" {
		pattern := "%" + keyword + "%"
		query = query.Where("username LIKE ? OR email LIKE ? OR name LIKE ?", pattern, pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Role").Offset(offset).Limit(pageSize).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Update 更新用户基本信息
func (s *UserService) Update(actor Actor, tenantID, id uint, input UserInput) (*models.User, error) {
	user, err := s.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateDisplayName(input.Name); err != nil {
		return nil, err
	}
	if input.RoleID != nil {
		if err := s.validateRole(tenantID, *input.RoleID); err != nil {
			return nil, err
		}
	}

	old := *user
	user.Name = input.Name
	user.Phone = input.Phone
	user.Avatar = input.Avatar
	user.RoleID = input.RoleID

	if err := s.db.Save(user).Error; err != nil {
		return nil, err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "user", "update", user.ID, &old, user)
	s.invalidatePermissions(user.ID)
	return user, nil
}

// ChangeStatus 切换用户状态（active/inactive/locked）
func (s *UserService) ChangeStatus(actor Actor, tenantID, id uint, status string) (*models.User, error) {
	switch status {
	case models.UserStatusActive, models.UserStatusInactive, models.UserStatusLocked:
	default:
		return nil, apperrors.NewValidation("状态只能是active、inactive或locked")
	}

	user, err := s.GetByID(tenantID, id)
	if err != nil {
		return nil, err
	}

	old := *user
	user.Status = status
	if err := s.db.Save(user).Error; err != nil {
		return nil, err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "user", "status:"+status, user.ID, &old, user)
	s.invalidatePermissions(user.ID)
	return user, nil
}

// SoftDelete 软删除用户 - 状态置为deleted，数据保留
func (s *UserService) SoftDelete(actor Actor, tenantID, id uint) error {
	user, err := s.GetByID(tenantID, id)
	if err != nil {
		return err
	}

	old := *user
	user.Status = models.UserStatusDeleted
	if err := s.db.Save(user).Error; err != nil {
		return err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "user", "delete", user.ID, &old, user)
	s.invalidatePermissions(user.ID)
	return nil
}

// AssignRole 给用户分配角色
func (s *UserService) AssignRole(actor Actor, tenantID, userID uint, roleID *uint) (*models.User, error) {
	user, err := s.GetByID(tenantID, userID)
	if err != nil {
		return nil, err
	}
	if roleID != nil {
		if err := s.validateRole(tenantID, *roleID); err != nil {
			return nil, err
		}
	}

	old := *user
	user.RoleID = roleID
	if err := s.db.Save(user).Error; err != nil {
		return nil, err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "user", "assign_role", user.ID, &old, user)
	s.invalidatePermissions(user.ID)
	return user, nil
}

// ResetPassword 重置密码
func (s *UserService) ResetPassword(actor Actor, tenantID, id uint, password string) error {
	user, err := s.GetByID(tenantID, id)
	if err != nil {
		return err
	}
	if err := s.validatePassword(password); err != nil {
		return err
	}

	if err := user.SetPassword(password); err != nil {
		return err
	}
	if err := s.db.Model(user).Update("password_hash", user.PasswordHash).Error; err != nil {
		return err
	}

	s.audit.RecordChange(tenantID, actor.UserID, actor.Username, "user", "reset_password", user.ID, nil, nil)
	return nil
}

// GetStats 获取用户统计（租户内）
func (s *UserService) GetStats(tenantID uint) (*UserStats, error) {
	stats := &UserStats{}
	base := s.db.Model(&models.User{}).Where("tenant_id = ?", tenantID)

	base.Session(&gorm.Session{}).Where("status <> ?", models.UserStatusDeleted).Count(&stats.Total)
	base.Session(&gorm.Session{}).Where("status = ?", models.UserStatusActive).Count(&stats.Active)
	base.Session(&gorm.Session{}).Where("status = ?", models.UserStatusInactive).Count(&stats.Inactive)
	base.Session(&gorm.Session{}).Where("status = ?", models.UserStatusLocked).Count(&stats.Locked)

	return stats, nil
}

// ========== 认证与权限 ==========

// Authenticate 校验登录凭证 - 租户必须处于active状态
func (s *UserService) Authenticate(tenantCode, username, password string) (*models.User, error) {
	var tenant models.Tenant
	err := s.db.Where("code = ?", tenantCode).First(&tenant).Error
	if err != nil {
		return nil, apperrors.New(401, apperrors.CodeUnauthorized, "用户名或密码错误")
	}
	if tenant.Status != models.TenantStatusActive {
		return nil, apperrors.NewForbidden(apperrors.CodeForbidden, "租户已被停用")
	}

	var user models.User
	err = s.db.Where("tenant_id = ? AND username = ? AND status <> ?",
		tenant.ID, username, models.UserStatusDeleted).
		Preload("Role").
		First(&user).Error
	if err != nil || !user.CheckPassword(password) {
		return nil, apperrors.New(401, apperrors.CodeUnauthorized, "用户名或密码错误")
	}
	if user.Status != models.UserStatusActive {
		return nil, apperrors.NewForbidden(apperrors.CodeForbidden, "用户已被禁用或锁定")
	}

	now := time.Now()
	s.db.Model(&user).Update("last_login_at", now)
	user.LastLoginAt = &now

	return &user, nil
}

// GetPermissionCodes 解析用户的权限代码集合（带Redis缓存）
//
// 超级角色返回 ["*"]，表示通配全部权限。
func (s *UserService) GetPermissionCodes(userID uint) ([]string, error) {
	if s.cache != nil {
		if codes, ok, err := s.cache.GetUserPermissions(userID); err == nil && ok {
			return codes, nil
		}
	}

	var user models.User
	err := s.db.Preload("Role").First(&user, userID).Error
	if err != nil {
		return nil, err
	}

	var codes []string
	switch {
	case user.IsPlatformAdmin:
		codes = []string{superPermissionMark}
	case user.Role != nil && user.Role.IsSuper && user.Role.Status == models.RoleStatusActive:
		codes = []string{superPermissionMark}
	case user.RoleID != nil && user.Role != nil && user.Role.Status == models.RoleStatusActive:
		err = s.db.Model(&models.Permission{}).
			Joins("JOIN role_permissions ON permissions.id = role_permissions.permission_id").
			Where("role_permissions.role_id = ? AND permissions.status = ?", *user.RoleID, models.PermissionStatusActive).
			Pluck("permissions.code", &codes).Error
		if err != nil {
			return nil, err
		}
	}

	if s.cache != nil {
		if err := s.cache.SetUserPermissions(userID, codes); err != nil {
			logger.GetLogger().Warnf("权限缓存写入失败: user=%d err=%v", userID, err)
		}
	}
	return codes, nil
}

// HasPermission 检查用户是否有特定权限
func (s *UserService) HasPermission(userID uint, permissionCode string) (bool, error) {
	codes, err := s.GetPermissionCodes(userID)
	if err != nil {
		return false, err
	}
	for _, code := range codes {
		if code == superPermissionMark || code == permissionCode {
			return true, nil
		}
	}
	return false, nil
}

// invalidatePermissions 失效单个用户的权限缓存
func (s *UserService) invalidatePermissions(userID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUserPermissions(userID); err != nil {
		logger.GetLogger().Warnf("权限缓存失效失败: user=%d err=%v", userID, err)
	}
}

// ========== 验证相关方法 ==========

func (s *UserService) validateUsername(username string) error {
	if len(username) < 3 || len(username) > 50 {
		return apperrors.NewValidation("用户名长度必须在3-50个字符之间")
	}
	for _, r := range username {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_') {
			return apperrors.NewValidation("用户名只能包含字母、数字和下划线")
		}
	}
	return nil
}

func (s *UserService) validateEmail(email string) error {
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") || len(email) < 5 || len(email) > 100 {
		return apperrors.NewValidation("邮箱格式错误")
	}
	return nil
}

func (s *UserService) validatePassword(password string) error {
	if len(password) < 6 || len(password) > 50 {
		return apperrors.NewValidation("密码长度必须在6-50个字符之间")
	}
	return nil
}

func (s *UserService) validateDisplayName(name string) error {
	runeCount := utf8.RuneCountInString(name)
	if runeCount < 1 || runeCount > 100 {
		return apperrors.NewValidation("姓名长度必须在1-100个字符之间")
	}
	return nil
}

func (s *UserService) validateRole(tenantID, roleID uint) error {
	var count int64
	s.db.Model(&models.Role{}).Where("id = ? AND tenant_id = ?", roleID, tenantID).Count(&count)
	if count == 0 {
		return apperrors.NewValidation("角色不存在或不属于当前租户")
	}
	return nil
}
