package main

import (
	"encoding/json"
	"fmt"

	"adminhub/internal/database"
	"adminhub/internal/models"
	"adminhub/pkg/logger"

	"gorm.io/gorm"
)

// seedData 初始化种子数据
func seedData() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting seed data initialization...")

	db := database.GetDB()

	// 1. 创建默认租户
	tenant, err := createDefaultTenant(db)
	if err != nil {
		return fmt.Errorf("创建默认租户失败: %v", err)
	}

	// 2. 初始化权限树
	if err := initializePermissions(db, tenant.ID); err != nil {
		return fmt.Errorf("初始化权限失败: %v", err)
	}

	// 3. 创建系统角色
	if err := createSystemRoles(db, tenant.ID); err != nil {
		return fmt.Errorf("创建系统角色失败: %v", err)
	}

	// 4. 创建系统权限模板
	if err := createSystemTemplates(db, tenant.ID); err != nil {
		return fmt.Errorf("创建系统权限模板失败: %v", err)
	}

	// 5. 创建默认管理员用户
	if err := createDefaultAdmin(db, tenant.ID); err != nil {
		return fmt.Errorf("创建默认管理员失败: %v", err)
	}

	appLogger.Info("Seed data initialization completed successfully")
	return nil
}

// createDefaultTenant 创建默认租户
func createDefaultTenant(db *gorm.DB) (*models.Tenant, error) {
	var tenant models.Tenant
	err := db.Where("code = ?", models.DefaultTenantCode).First(&tenant).Error
	if err == nil {
		logger.GetLogger().Info("默认租户已存在，跳过创建")
		return &tenant, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	tenant = models.Tenant{
		Name:   "默认租户",
		Code:   models.DefaultTenantCode,
		Status: models.TenantStatusActive,
	}

	if err := db.Create(&tenant).Error; err != nil {
		return nil, err
	}

	logger.GetLogger().Info("默认租户创建成功")
	return &tenant, nil
}

// seedPermission 种子权限节点定义
type seedPermission struct {
	Code      string
	Name      string
	Type      string
	FrontPath string
	APIPath   string
	Method    string
	SortOrder int
	Children  []seedPermission
}

// initializePermissions 按树结构初始化系统权限
func initializePermissions(db *gorm.DB, tenantID uint) error {
	tree := []seedPermission{
		{
			Code: "system", Name: "系统管理", Type: models.PermissionTypeMenu, FrontPath: "/system", SortOrder: 1,
			Children: []seedPermission{
				{
					Code: "user", Name: "用户管理", Type: models.PermissionTypePage, FrontPath: "/system/users", SortOrder: 1,
					Children: []seedPermission{
						{Code: "user:list", Name: "用户列表", Type: models.PermissionTypeAPI, APIPath: "/api/v1/users", Method: "GET", SortOrder: 1},
						{Code: "user:read", Name: "查看用户", Type: models.PermissionTypeAPI, APIPath: "/api/v1/users/:id", Method: "GET", SortOrder: 2},
						{Code: "user:create", Name: "创建用户", Type: models.PermissionTypeButton, SortOrder: 3},
						{Code: "user:update", Name: "更新用户", Type: models.PermissionTypeButton, SortOrder: 4},
						{Code: "user:delete", Name: "删除用户", Type: models.PermissionTypeButton, SortOrder: 5},
						{Code: "user:assign_role", Name: "分配角色", Type: models.PermissionTypeButton, SortOrder: 6},
						{Code: "user:impersonate", Name: "代登录", Type: models.PermissionTypeButton, SortOrder: 7},
					},
				},
				{
					Code: "role", Name: "角色管理", Type: models.PermissionTypePage, FrontPath: "/system/roles", SortOrder: 2,
					Children: []seedPermission{
						{Code: "role:list", Name: "角色列表", Type: models.PermissionTypeAPI, APIPath: "/api/v1/roles", Method: "GET", SortOrder: 1},
						{Code: "role:read", Name: "查看角色", Type: models.PermissionTypeAPI, APIPath: "/api/v1/roles/:id", Method: "GET", SortOrder: 2},
						{Code: "role:create", Name: "创建角色", Type: models.PermissionTypeButton, SortOrder: 3},
						{Code: "role:update", Name: "更新角色", Type: models.PermissionTypeButton, SortOrder: 4},
						{Code: "role:delete", Name: "删除角色", Type: models.PermissionTypeButton, SortOrder: 5},
						{Code: "role:grant", Name: "角色授权", Type: models.PermissionTypeButton, SortOrder: 6},
					},
				},
				{
					Code: "permission", Name: "权限管理", Type: models.PermissionTypePage, FrontPath: "/system/permissions", SortOrder: 3,
					Children: []seedPermission{
						{Code: "permission:list", Name: "权限列表", Type: models.PermissionTypeAPI, APIPath: "/api/v1/permissions", Method: "GET", SortOrder: 1},
						{Code: "permission:read", Name: "查看权限", Type: models.PermissionTypeAPI, APIPath: "/api/v1/permissions/:id", Method: "GET", SortOrder: 2},
						{Code: "permission:create", Name: "创建权限", Type: models.PermissionTypeButton, SortOrder: 3},
						{Code: "permission:update", Name: "更新权限", Type: models.PermissionTypeButton, SortOrder: 4},
						{Code: "permission:delete", Name: "删除权限", Type: models.PermissionTypeButton, SortOrder: 5},
					},
				},
				{
					Code: "permission_template", Name: "权限模板", Type: models.PermissionTypePage, FrontPath: "/system/permission-templates", SortOrder: 4,
					Children: []seedPermission{
						{Code: "permission_template:list", Name: "模板列表", Type: models.PermissionTypeAPI, APIPath: "/api/v1/permission-templates", Method: "GET", SortOrder: 1},
						{Code: "permission_template:read", Name: "查看模板", Type: models.PermissionTypeAPI, APIPath: "/api/v1/permission-templates/:id", Method: "GET", SortOrder: 2},
						{Code: "permission_template:create", Name: "创建模板", Type: models.PermissionTypeButton, SortOrder: 3},
						{Code: "permission_template:apply", Name: "应用模板", Type: models.PermissionTypeButton, SortOrder: 4},
						{Code: "permission_template:delete", Name: "删除模板", Type: models.PermissionTypeButton, SortOrder: 5},
					},
				},
				{
					Code: "organization", Name: "组织管理", Type: models.PermissionTypePage, FrontPath: "/system/organizations", SortOrder: 5,
					Children: []seedPermission{
						{Code: "organization:list", Name: "组织列表", Type: models.PermissionTypeAPI, APIPath: "/api/v1/organizations/tree", Method: "GET", SortOrder: 1},
						{Code: "organization:read", Name: "查看组织", Type: models.PermissionTypeAPI, APIPath: "/api/v1/organizations/:id", Method: "GET", SortOrder: 2},
						{Code: "organization:create", Name: "创建组织", Type: models.PermissionTypeButton, SortOrder: 3},
						{Code: "organization:update", Name: "更新组织", Type: models.PermissionTypeButton, SortOrder: 4},
						{Code: "organization:delete", Name: "删除组织", Type: models.PermissionTypeButton, SortOrder: 5},
						{Code: "organization:manage_members", Name: "成员管理", Type: models.PermissionTypeButton, SortOrder: 6},
					},
				},
				{
					Code: "data_permission", Name: "数据权限", Type: models.PermissionTypePage, FrontPath: "/system/data-permissions", SortOrder: 6,
					Children: []seedPermission{
						{Code: "data_permission:list", Name: "规则列表", Type: models.PermissionTypeAPI, APIPath: "/api/v1/data-permissions", Method: "GET", SortOrder: 1},
						{Code: "data_permission:read", Name: "查看规则", Type: models.PermissionTypeAPI, APIPath: "/api/v1/data-permissions/:id", Method: "GET", SortOrder: 2},
						{Code: "data_permission:create", Name: "创建规则", Type: models.PermissionTypeButton, SortOrder: 3},
						{Code: "data_permission:delete", Name: "删除规则", Type: models.PermissionTypeButton, SortOrder: 4},
					},
				},
				{
					Code: "log", Name: "审计日志", Type: models.PermissionTypePage, FrontPath: "/system/logs", SortOrder: 7,
					Children: []seedPermission{
						{Code: "log:view", Name: "查看日志", Type: models.PermissionTypeAPI, APIPath: "/api/v1/logs", Method: "GET", SortOrder: 1},
					},
				},
			},
		},
	}

	for _, node := range tree {
		if err := createPermissionNode(db, tenantID, nil, node); err != nil {
			return err
		}
	}

	logger.GetLogger().Info("权限初始化完成")
	return nil
}

// createPermissionNode 递归创建权限节点，已存在时复用
func createPermissionNode(db *gorm.DB, tenantID uint, parentID *uint, node seedPermission) error {
	var perm models.Permission
	err := db.Where("tenant_id = ? AND code = ?", tenantID, node.Code).First(&perm).Error
	if err == gorm.ErrRecordNotFound {
		perm = models.Permission{
			TenantID:  tenantID,
			ParentID:  parentID,
			Code:      node.Code,
			Name:      node.Name,
			Type:      node.Type,
			FrontPath: node.FrontPath,
			APIPath:   node.APIPath,
			Method:    node.Method,
			SortOrder: node.SortOrder,
			IsSystem:  true,
			Status:    models.PermissionStatusActive,
		}
		if err := db.Create(&perm).Error; err != nil {
			return fmt.Errorf("创建权限 %s 失败: %v", node.Code, err)
		}
	} else if err != nil {
		return err
	}

	for _, child := range node.Children {
		if err := createPermissionNode(db, tenantID, &perm.ID, child); err != nil {
			return err
		}
	}
	return nil
}

// createSystemRoles 创建系统角色
func createSystemRoles(db *gorm.DB, tenantID uint) error {
	// 平台管理员：超级角色，跳过权限检查
	if err := ensureRole(db, &models.Role{
		TenantID:    tenantID,
		Code:        models.RolePlatformAdmin,
		Name:        "平台管理员",
		Description: "系统最高权限管理员",
		IsSuper:     true,
		IsSystem:    true,
		Status:      models.RoleStatusActive,
	}); err != nil {
		return err
	}

	// 租户管理员：通过系统模板授权
	if err := ensureRole(db, &models.Role{
		TenantID:    tenantID,
		Code:        models.RoleTenantAdmin,
		Name:        "租户管理员",
		Description: "租户内的管理角色",
		IsSystem:    true,
		Status:      models.RoleStatusActive,
	}); err != nil {
		return err
	}

	logger.GetLogger().Info("系统角色创建成功")
	return nil
}

func ensureRole(db *gorm.DB, role *models.Role) error {
	var count int64
	db.Model(&models.Role{}).Where("tenant_id = ? AND code = ?", role.TenantID, role.Code).Count(&count)
	if count > 0 {
		return nil
	}
	return db.Create(role).Error
}

// createSystemTemplates 创建系统权限模板
func createSystemTemplates(db *gorm.DB, tenantID uint) error {
	var count int64
	db.Model(&models.PermissionTemplate{}).Where("tenant_id = ? AND name = ?", tenantID, "租户管理员").Count(&count)
	if count > 0 {
		return nil
	}

	codes := []string{
		"user:list", "user:read", "user:create", "user:update", "user:delete", "user:assign_role",
		"role:list", "role:read", "role:create", "role:update", "role:delete", "role:grant",
		"permission:list", "permission:read",
		"permission_template:list", "permission_template:read", "permission_template:apply",
		"organization:list", "organization:read", "organization:create", "organization:update", "organization:delete", "organization:manage_members",
		"data_permission:list", "data_permission:read",
		"log:view",
	}
	raw, err := json.Marshal(codes)
	if err != nil {
		return err
	}

	template := &models.PermissionTemplate{
		TenantID:        tenantID,
		Name:            "租户管理员",
		Description:     "租户内日常管理所需的权限集合",
		PermissionCodes: raw,
		IsSystem:        true,
	}
	if err := db.Create(template).Error; err != nil {
		return err
	}

	logger.GetLogger().Info("系统权限模板创建成功")
	return nil
}

// createDefaultAdmin 创建默认管理员用户
func createDefaultAdmin(db *gorm.DB, tenantID uint) error {
	var count int64
	db.Model(&models.User{}).Where("tenant_id = ? AND username = ?", tenantID, "admin").Count(&count)
	if count > 0 {
		logger.GetLogger().Info("管理员用户已存在，跳过创建")
		return nil
	}

	var role models.Role
	if err := db.Where("tenant_id = ? AND code = ?", tenantID, models.RolePlatformAdmin).First(&role).Error; err != nil {
		return fmt.Errorf("获取平台管理员角色失败: %v", err)
	}

	user := &models.User{
		TenantID:        tenantID,
		RoleID:          &role.ID,
		Username:        "admin",
		Email:           "admin@example.com",
		Name:            "系统管理员",
		Status:          models.UserStatusActive,
		IsPlatformAdmin: true,
	}

	if err := user.SetPassword("Admin@123"); err != nil {
		return fmt.Errorf("设置密码失败: %v", err)
	}

	if err := db.Create(user).Error; err != nil {
		return err
	}

	logger.GetLogger().Infof("默认管理员创建成功 - 用户名: admin, 密码: Admin@123")
	return nil
}
