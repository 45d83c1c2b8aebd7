package models

import "time"

// Organization 组织模型 - parent_id 组成层级，path 冗余存储祖先链
type Organization struct {
	BaseModel
	TenantID  uint   `json:"tenant_id" gorm:"not null;index;uniqueIndex:idx_org_tenant_code"`
	ParentID  *uint  `json:"parent_id" gorm:"index"`
	Code      string `json:"code" gorm:"size:50;not null;uniqueIndex:idx_org_tenant_code"`
	Name      string `json:"name" gorm:"size:100;not null"`
	LeaderID  *uint  `json:"leader_id" gorm:"index"`                 // 负责人
	Path      string `json:"path" gorm:"size:500;index"`             // 祖先链，如 "/1/5/12"
	Status    string `json:"status" gorm:"size:20;default:'active'"`
	SortOrder int    `json:"sort_order" gorm:"default:0"`

	// 关联关系
	Tenant *Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	Leader *User   `json:"leader,omitempty" gorm:"foreignKey:LeaderID"`
}

// TableName 表名
func (o *Organization) TableName() string {
	return "organizations"
}

// 组织状态常量
const (
	OrganizationStatusActive   = "active"
	OrganizationStatusInactive = "inactive"
)

// UserOrganization 用户-组织关联表 - (user_id, organization_id) 唯一
// 约定每个用户至多一条 is_main = true 记录，由应用层维护
type UserOrganization struct {
	ID             uint      `json:"id" gorm:"primarykey"`
	UserID         uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_org"`
	OrganizationID uint      `json:"organization_id" gorm:"not null;index;uniqueIndex:idx_user_org"`
	Position       string    `json:"position" gorm:"size:100"` // 职位
	IsMain         bool      `json:"is_main" gorm:"default:false"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// 关联
	User         *User         `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Organization *Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
}

// TableName 指定表名
func (UserOrganization) TableName() string {
	return "user_organizations"
}
