package models

import (
	"time"

	"gorm.io/datatypes"
)

// SystemLog 操作审计日志 - 只追加，不更新
type SystemLog struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	TenantID  uint           `json:"tenant_id" gorm:"not null;index"`
	UserID    uint           `json:"user_id" gorm:"index"`
	Username  string         `json:"username" gorm:"size:50"`
	Module    string         `json:"module" gorm:"size:50;not null;index"` // tenant, user, role, permission...
	Action    string         `json:"action" gorm:"size:50;not null;index"` // create, update, delete, activate...
	TargetID  uint           `json:"target_id" gorm:"index"`
	OldValue  datatypes.JSON `json:"old_value"`
	NewValue  datatypes.JSON `json:"new_value"`
	IP        string         `json:"ip" gorm:"size:45"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
}

// TableName 表名
func (SystemLog) TableName() string {
	return "system_logs"
}
