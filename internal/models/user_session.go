package models

import "time"

// UserSession 登录会话 - 每次登录一条记录，支持管理员代登录
type UserSession struct {
	BaseModel
	UserID         uint       `json:"user_id" gorm:"not null;index"`
	TenantID       uint       `json:"tenant_id" gorm:"not null;index"`
	Token          string     `json:"token" gorm:"size:64;not null;uniqueIndex"` // 会话标识（非JWT本身）
	IP             string     `json:"ip" gorm:"size:45"`
	UserAgent      string     `json:"user_agent" gorm:"size:255"`
	ImpersonatorID *uint      `json:"impersonator_id" gorm:"index"` // 代登录的管理员
	ExpiresAt      time.Time  `json:"expires_at" gorm:"not null;index"`
	RevokedAt      *time.Time `json:"revoked_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// TableName 表名
func (UserSession) TableName() string {
	return "user_sessions"
}

// IsActive 会话是否有效
func (s *UserSession) IsActive(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
