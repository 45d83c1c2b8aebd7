package middleware

import (
	"strings"

	"adminhub/internal/models"
	"adminhub/internal/services"
	"adminhub/pkg/jwt"
	"adminhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 权限中间件
type AuthMiddleware struct {
	userService    *services.UserService
	sessionService *services.SessionService
	jwtManager     *jwt.JWTManager
}

func NewAuthMiddleware(userService *services.UserService, sessionService *services.SessionService) *AuthMiddleware {
	return &AuthMiddleware{
		userService:    userService,
		sessionService: sessionService,
		jwtManager:     jwt.GetJWTManager(),
	}
}

// RequireLogin 要求登录
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(c, "认证头格式错误")
			c.Abort()
			return
		}
		tokenString := authHeader[7:]

		claims, err := m.jwtManager.VerifyToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "Token无效或已过期")
			c.Abort()
			return
		}

		// 会话级吊销检查（登出后token立即失效）
		valid, err := m.sessionService.IsValid(claims.SessionID)
		if err != nil || !valid {
			response.Unauthorized(c, "会话已失效，请重新登录")
			c.Abort()
			return
		}

		user, err := m.userService.GetByID(claims.TenantID, claims.UserID)
		if err != nil {
			response.Unauthorized(c, "用户不存在")
			c.Abort()
			return
		}
		if user.Status != models.UserStatusActive {
			response.Unauthorized(c, "用户已被禁用")
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", claims.UserID)
		c.Set("tenant_id", claims.TenantID)
		c.Set("username", claims.Username)
		c.Set("session_id", claims.SessionID)
		c.Set("is_platform_admin", claims.IsPlatformAdmin)

		c.Next()
	}
}

// RequirePermission 要求特定权限
func (m *AuthMiddleware) RequirePermission(permissionCode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("user_id")
		if !exists {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		hasPermission, err := m.userService.HasPermission(userID.(uint), permissionCode)
		if err != nil {
			response.ServerError(c, "权限检查失败")
			c.Abort()
			return
		}

		if !hasPermission {
			response.Forbidden(c, "权限不足：需要 "+permissionCode+" 权限")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequirePlatformAdmin 要求平台管理员
func (m *AuthMiddleware) RequirePlatformAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get("user")
		if !exists {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		if !user.(*models.User).IsPlatformAdmin {
			response.Forbidden(c, "需要平台管理员权限")
			c.Abort()
			return
		}

		c.Next()
	}
}
