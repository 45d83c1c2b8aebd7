package handlers

import (
	"strconv"

	"adminhub/internal/services"

	"github.com/gin-gonic/gin"
)

// actorFromContext 从登录上下文提取操作者信息（审计用）
func actorFromContext(c *gin.Context) services.Actor {
	actor := services.Actor{IP: c.ClientIP()}
	if userID, exists := c.Get("user_id"); exists {
		actor.UserID = userID.(uint)
	}
	if username, exists := c.Get("username"); exists {
		actor.Username = username.(string)
	}
	return actor
}

// tenantIDFromContext 当前操作的租户
func tenantIDFromContext(c *gin.Context) uint {
	if tenantID, exists := c.Get("tenant_id"); exists {
		return tenantID.(uint)
	}
	return 0
}

// parseIDParam 解析路径中的ID参数
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
