package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User 用户模型
type User struct {
	BaseModel
	TenantID        uint       `json:"tenant_id" gorm:"not null;index;uniqueIndex:idx_tenant_username;uniqueIndex:idx_tenant_email"`
	RoleID          *uint      `json:"role_id" gorm:"index"`
	Username        string     `json:"username" gorm:"not null;size:50;uniqueIndex:idx_tenant_username"`
	Email           string     `json:"email" gorm:"not null;size:100;uniqueIndex:idx_tenant_email"`
	PasswordHash    string     `json:"-" gorm:"not null;size:255"`
	Name            string     `json:"name" gorm:"not null;size:100"`
	Phone           *string    `json:"phone" gorm:"size:20"`
	Avatar          *string    `json:"avatar" gorm:"size:255"`
	Status          string     `json:"status" gorm:"default:'active';size:20;index"`
	IsPlatformAdmin bool       `json:"is_platform_admin" gorm:"default:false"`
	LastLoginAt     *time.Time `json:"last_login_at"`

	// 关联关系
	Tenant        *Tenant        `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	Role          *Role          `json:"role,omitempty" gorm:"foreignKey:RoleID"`
	Organizations []Organization `json:"organizations,omitempty" gorm:"many2many:user_organizations;"`
}

// TableName 表名
func (u *User) TableName() string {
	return "users"
}

// 用户状态常量 - deleted 为软删除终态，普通查询一律排除
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusLocked   = "locked"
	UserStatusDeleted  = "deleted"
)

// SetPassword 设置密码 - 数据操作方法
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码 - 数据操作方法
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}
