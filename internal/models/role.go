package models

import "time"

// Role 角色模型
type Role struct {
	BaseModel
	TenantID    uint   `json:"tenant_id" gorm:"not null;index;uniqueIndex:idx_role_tenant_code;uniqueIndex:idx_role_tenant_name"`
	ParentID    *uint  `json:"parent_id" gorm:"index"`                 // 上级角色（自引用层级）
	Code        string `json:"code" gorm:"size:100;not null;uniqueIndex:idx_role_tenant_code"` // 角色代码，如 "tenant_admin"
	Name        string `json:"name" gorm:"size:100;not null;uniqueIndex:idx_role_tenant_name"` // 角色名称
	Description string `json:"description" gorm:"size:255"`
	IsSuper     bool   `json:"is_super" gorm:"default:false"`          // 超级角色，跳过权限检查
	IsSystem    bool   `json:"is_system" gorm:"default:false"`         // 系统角色（不可删除）
	Status      string `json:"status" gorm:"size:20;default:'active'"` // 状态：active, inactive

	// 关联关系
	Tenant      *Tenant      `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	Parent      *Role        `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	Permissions []Permission `json:"permissions,omitempty" gorm:"many2many:role_permissions;"`
}

// TableName 表名
func (r *Role) TableName() string {
	return "roles"
}

// 角色状态常量
const (
	RoleStatusActive   = "active"
	RoleStatusInactive = "inactive"
)

// 系统预定义角色常量
const (
	RolePlatformAdmin = "platform_admin" // 平台超级管理员
	RoleTenantAdmin   = "tenant_admin"   // 租户管理员
	RoleTenantUser    = "tenant_user"    // 租户普通用户
)

// RolePermission 角色权限关联表 - (tenant_id, role_id, permission_id) 唯一
type RolePermission struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	TenantID     uint      `json:"tenant_id" gorm:"not null;index;uniqueIndex:idx_role_perm"`
	RoleID       uint      `json:"role_id" gorm:"not null;index;uniqueIndex:idx_role_perm"`
	PermissionID uint      `json:"permission_id" gorm:"not null;index;uniqueIndex:idx_role_perm"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 表名
func (RolePermission) TableName() string {
	return "role_permissions"
}
