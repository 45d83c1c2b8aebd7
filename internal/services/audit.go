package services

import (
	"encoding/json"
	"time"

	"adminhub/internal/models"
	"adminhub/pkg/logger"

	"gorm.io/gorm"
)

// AuditService 审计日志服务
//
// 写入为 best-effort：Record 把日志投递到缓冲通道后立即返回，由单独的
// 写入协程落库。审计失败只在本地打日志，绝不影响主操作的结果。
type AuditService struct {
	db      *gorm.DB
	entries chan models.SystemLog
	done    chan struct{}
}

// NewAuditService 创建审计服务
func NewAuditService(db *gorm.DB, bufferSize int) *AuditService {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	return &AuditService{
		db:      db,
		entries: make(chan models.SystemLog, bufferSize),
		done:    make(chan struct{}),
	}
}

// Start 启动审计写入协程
func (s *AuditService) Start() {
	go s.writeLoop()
}

// Stop 停止写入协程并尽量排空缓冲区
func (s *AuditService) Stop() {
	close(s.entries)
	<-s.done
}

func (s *AuditService) writeLoop() {
	defer close(s.done)
	appLogger := logger.GetLogger()

	for entry := range s.entries {
		if err := s.db.Create(&entry).Error; err != nil {
			appLogger.Warnf("审计日志写入失败（已忽略）: module=%s action=%s err=%v",
				entry.Module, entry.Action, err)
		}
	}
}

// Record 记录一条审计日志 - 非阻塞，缓冲区满时丢弃
func (s *AuditService) Record(entry models.SystemLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	select {
	case s.entries <- entry:
	default:
		logger.GetLogger().Warnf("审计日志缓冲区已满，丢弃: module=%s action=%s target=%d",
			entry.Module, entry.Action, entry.TargetID)
	}
}

// RecordChange 记录带前后值的审计日志，序列化失败同样只降级为本地日志
func (s *AuditService) RecordChange(tenantID, userID uint, username, module, action string, targetID uint, oldValue, newValue interface{}) {
	entry := models.SystemLog{
		TenantID: tenantID,
		UserID:   userID,
		Username: username,
		Module:   module,
		Action:   action,
		TargetID: targetID,
	}

	if oldValue != nil {
		if data, err := json.Marshal(oldValue); err == nil {
			entry.OldValue = data
		}
	}
	if newValue != nil {
		if data, err := json.Marshal(newValue); err == nil {
			entry.NewValue = data
		}
	}

	s.Record(entry)
}

// ========== 查询方法 ==========

// GetWithPage 分页查询审计日志
func (s *AuditService) GetWithPage(tenantID uint, module, action string, page, pageSize int) ([]*models.SystemLog, int64, error) {
	var logs []*models.SystemLog
	var total int64

	query := s.db.Model(&models.SystemLog{}).Where("tenant_id = ?", tenantID)
	if module != "" {
		query = query.Where("module = ?", module)
	}
	if action != "" {
		query = query.Where("action = ?", action)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

// GetSince 获取某时间点之后的日志（websocket实时推送用）
func (s *AuditService) GetSince(tenantID uint, since time.Time, limit int) ([]*models.SystemLog, error) {
	var logs []*models.SystemLog
	err := s.db.Where("tenant_id = ? AND created_at > ?", tenantID, since).
		Order("created_at ASC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// CleanupExpired 清理超过保留期的日志
func (s *AuditService) CleanupExpired(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}
