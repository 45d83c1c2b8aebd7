package models

import (
	"time"

	"gorm.io/datatypes"
)

// DataPermissionRule 数据权限规则 - 行级可见范围，独立于菜单/API权限树
type DataPermissionRule struct {
	BaseModel
	TenantID    uint           `json:"tenant_id" gorm:"not null;index;uniqueIndex:idx_rule_tenant_name"`
	Name        string         `json:"name" gorm:"size:100;not null;uniqueIndex:idx_rule_tenant_name"`
	Description string         `json:"description" gorm:"size:255"`
	RuleType    string         `json:"rule_type" gorm:"size:20;not null"` // all, org, dept, self, custom
	Scope       datatypes.JSON `json:"scope"`                             // custom类型的规则参数（如组织ID列表）
	Status      string         `json:"status" gorm:"size:20;default:'active'"`
}

// TableName 表名
func (DataPermissionRule) TableName() string {
	return "data_permission_rules"
}

// 数据权限规则类型常量
const (
	DataRuleAll    = "all"    // 全部数据
	DataRuleOrg    = "org"    // 本组织及下级组织
	DataRuleDept   = "dept"   // 仅本组织
	DataRuleSelf   = "self"   // 仅本人
	DataRuleCustom = "custom" // 自定义范围
)

// RoleDataPermission 角色-数据权限规则关联表
type RoleDataPermission struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TenantID  uint      `json:"tenant_id" gorm:"not null;index;uniqueIndex:idx_role_data_rule"`
	RoleID    uint      `json:"role_id" gorm:"not null;index;uniqueIndex:idx_role_data_rule"`
	RuleID    uint      `json:"rule_id" gorm:"not null;index;uniqueIndex:idx_role_data_rule"`
	CreatedAt time.Time `json:"created_at"`

	Rule *DataPermissionRule `json:"rule,omitempty" gorm:"foreignKey:RuleID"`
}

// TableName 表名
func (RoleDataPermission) TableName() string {
	return "role_data_permissions"
}
