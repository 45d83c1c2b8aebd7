package models

import "gorm.io/datatypes"

// Permission 权限模型 - 按 parent_id 组成树
type Permission struct {
	BaseModel
	TenantID     uint   `json:"tenant_id" gorm:"not null;index;uniqueIndex:idx_perm_tenant_code;uniqueIndex:idx_perm_tenant_name"`
	ParentID     *uint  `json:"parent_id" gorm:"index"`
	Code         string `json:"code" gorm:"size:100;not null;uniqueIndex:idx_perm_tenant_code"` // 权限代码，如 "user:create"
	Name         string `json:"name" gorm:"size:100;not null;uniqueIndex:idx_perm_tenant_name"` // 权限名称
	Description  string `json:"description" gorm:"size:255"`
	Type         string `json:"type" gorm:"size:20;not null;index"`     // menu, page, button, api, data
	FrontPath    string `json:"front_path" gorm:"size:255"`             // menu/page类型的前端路由
	APIPath      string `json:"api_path" gorm:"size:255"`               // api类型的接口路径
	Method       string `json:"method" gorm:"size:10"`                  // api类型的HTTP方法
	ResourceType string `json:"resource_type" gorm:"size:50"`           // data类型的资源类型
	SortOrder    int    `json:"sort_order" gorm:"default:0"`
	IsSystem     bool   `json:"is_system" gorm:"default:false"`         // 系统权限（不可删除）
	Status       string `json:"status" gorm:"size:20;default:'active'"`
}

// TableName 表名
func (p *Permission) TableName() string {
	return "permissions"
}

// 权限类型常量
const (
	PermissionTypeMenu   = "menu"
	PermissionTypePage   = "page"
	PermissionTypeButton = "button"
	PermissionTypeAPI    = "api"
	PermissionTypeData   = "data"
)

// 权限状态常量
const (
	PermissionStatusActive   = "active"
	PermissionStatusInactive = "inactive"
)

// PermissionTemplate 权限模板 - 可复用的权限代码集合，用于批量授权
type PermissionTemplate struct {
	BaseModel
	TenantID        uint           `json:"tenant_id" gorm:"not null;index;uniqueIndex:idx_tpl_tenant_name"`
	Name            string         `json:"name" gorm:"size:100;not null;uniqueIndex:idx_tpl_tenant_name"`
	Description     string         `json:"description" gorm:"size:255"`
	PermissionCodes datatypes.JSON `json:"permission_codes" gorm:"not null"` // JSON字符串数组
	IsSystem        bool           `json:"is_system" gorm:"default:false"`   // 系统模板（不可删除）
}

// TableName 表名
func (PermissionTemplate) TableName() string {
	return "permission_templates"
}
