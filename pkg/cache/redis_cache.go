package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache 基于Redis的权限/会话缓存
type RedisCache struct {
	client *redis.Client
	prefix string
}

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// 缓存有效期
const (
	permissionTTL = 10 * time.Minute
)

// NewRedisCache 创建Redis缓存实例
func NewRedisCache(config *Config) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	prefix := config.Prefix
	if prefix == "" {
		prefix = "adminhub:cache"
	}

	return &RedisCache{
		client: client,
		prefix: prefix,
	}
}

// Close 关闭Redis连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping 测试Redis连接
func (c *RedisCache) Ping() error {
	return c.client.Ping(context.Background()).Err()
}

func (c *RedisCache) permissionKey(userID uint) string {
	return fmt.Sprintf("%s:perms:%d", c.prefix, userID)
}

func (c *RedisCache) revokedKey(sessionID uint) string {
	return fmt.Sprintf("%s:revoked:%d", c.prefix, sessionID)
}

// SetUserPermissions 缓存用户解析后的权限代码集合
func (c *RedisCache) SetUserPermissions(userID uint, codes []string) error {
	data, err := json.Marshal(codes)
	if err != nil {
		return err
	}
	return c.client.Set(context.Background(), c.permissionKey(userID), data, permissionTTL).Err()
}

// GetUserPermissions 读取用户权限代码缓存，未命中返回 (nil, false)
func (c *RedisCache) GetUserPermissions(userID uint) ([]string, bool, error) {
	data, err := c.client.Get(context.Background(), c.permissionKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var codes []string
	if err := json.Unmarshal(data, &codes); err != nil {
		return nil, false, err
	}
	return codes, true, nil
}

// InvalidateUserPermissions 失效单个用户的权限缓存
func (c *RedisCache) InvalidateUserPermissions(userID uint) error {
	return c.client.Del(context.Background(), c.permissionKey(userID)).Err()
}

// InvalidateUsersPermissions 批量失效权限缓存（角色授权变更时使用）
func (c *RedisCache) InvalidateUsersPermissions(userIDs []uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, c.permissionKey(id))
	}
	return c.client.Del(context.Background(), keys...).Err()
}

// MarkSessionRevoked 标记会话已吊销（登出后token立即失效）
func (c *RedisCache) MarkSessionRevoked(sessionID uint, ttl time.Duration) error {
	return c.client.Set(context.Background(), c.revokedKey(sessionID), "1", ttl).Err()
}

// IsSessionRevoked 检查会话是否已被吊销
func (c *RedisCache) IsSessionRevoked(sessionID uint) (bool, error) {
	_, err := c.client.Get(context.Background(), c.revokedKey(sessionID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
