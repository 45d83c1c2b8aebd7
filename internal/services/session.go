package services

import (
	"errors"
	"strings"
	"time"

	"adminhub/internal/models"
	"adminhub/pkg/apperrors"
	"adminhub/pkg/cache"
	"adminhub/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionService 登录会话服务 - 每次登录持久化一条会话记录，支持代登录
type SessionService struct {
	db       *gorm.DB
	audit    *AuditService
	cache    *cache.RedisCache // 可为nil（单元测试不依赖Redis）
	duration time.Duration
}

func NewSessionService(db *gorm.DB, audit *AuditService, redisCache *cache.RedisCache, duration time.Duration) *SessionService {
	if duration <= 0 {
		duration = 24 * time.Hour
	}
	return &SessionService{db: db, audit: audit, cache: redisCache, duration: duration}
}

// Create 创建登录会话
func (s *SessionService) Create(user *models.User, ip, userAgent string, impersonatorID *uint) (*models.UserSession, error) {
	session := &models.UserSession{
		UserID:         user.ID,
		TenantID:       user.TenantID,
		Token:          strings.ReplaceAll(uuid.NewString(), "-", ""),
		IP:             ip,
		UserAgent:      userAgent,
		ImpersonatorID: impersonatorID,
		ExpiresAt:      time.Now().Add(s.duration),
	}

	if err := s.db.Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// GetByID 根据ID获取会话
func (s *SessionService) GetByID(id uint) (*models.UserSession, error) {
	var session models.UserSession
	if err := s.db.First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound(apperrors.CodeNotFound, "会话不存在")
		}
		return nil, err
	}
	return &session, nil
}

// IsValid 会话是否可用 - 未过期、未吊销（含Redis快速吊销标记）
func (s *SessionService) IsValid(sessionID uint) (bool, error) {
	if s.cache != nil {
		if revoked, err := s.cache.IsSessionRevoked(sessionID); err == nil && revoked {
			return false, nil
		}
	}

	session, err := s.GetByID(sessionID)
	if err != nil {
		return false, err
	}
	return session.IsActive(time.Now()), nil
}

// Revoke 吊销会话（登出）
func (s *SessionService) Revoke(actor Actor, sessionID uint) error {
	session, err := s.GetByID(sessionID)
	if err != nil {
		return err
	}
	if session.RevokedAt != nil {
		return nil
	}

	now := time.Now()
	if err := s.db.Model(session).Update("revoked_at", now).Error; err != nil {
		return err
	}

	if s.cache != nil {
		ttl := time.Until(session.ExpiresAt)
		if ttl > 0 {
			if err := s.cache.MarkSessionRevoked(sessionID, ttl); err != nil {
				logger.GetLogger().Warnf("会话吊销标记写入失败: session=%d err=%v", sessionID, err)
			}
		}
	}

	s.audit.RecordChange(session.TenantID, actor.UserID, actor.Username, "session", "revoke", sessionID, nil, nil)
	return nil
}

// RevokeAllForUser 吊销用户的全部会话（禁用、删除用户时调用）
func (s *SessionService) RevokeAllForUser(actor Actor, tenantID, userID uint) error {
	var sessions []models.UserSession
	err := s.db.Where("tenant_id = ? AND user_id = ? AND revoked_at IS NULL AND expires_at > ?",
		tenantID, userID, time.Now()).
		Find(&sessions).Error
	if err != nil {
		return err
	}

	for i := range sessions {
		if err := s.Revoke(actor, sessions[i].ID); err != nil {
			return err
		}
	}
	return nil
}

// GetActiveForUser 获取用户当前有效会话列表
func (s *SessionService) GetActiveForUser(tenantID, userID uint) ([]*models.UserSession, error) {
	var sessions []*models.UserSession
	err := s.db.Where("tenant_id = ? AND user_id = ? AND revoked_at IS NULL AND expires_at > ?",
		tenantID, userID, time.Now()).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// CleanupExpired 清理已过期/已吊销的历史会话（定时任务调用）
func (s *SessionService) CleanupExpired() (int64, error) {
	result := s.db.Where("expires_at < ? OR revoked_at IS NOT NULL", time.Now().Add(-24*time.Hour)).
		Delete(&models.UserSession{})
	return result.RowsAffected, result.Error
}
