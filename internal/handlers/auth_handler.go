package handlers

import (
	"adminhub/internal/services"
	"adminhub/pkg/jwt"
	"adminhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	TenantCode string `json:"tenant_code" binding:"required"`
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

type AuthHandler struct {
	userService    *services.UserService
	sessionService *services.SessionService
}

func NewAuthHandler(userService *services.UserService, sessionService *services.SessionService) *AuthHandler {
	return &AuthHandler{
		userService:    userService,
		sessionService: sessionService,
	}
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	user, err := h.userService.Authenticate(req.TenantCode, req.Username, req.Password)
	if err != nil {
		response.FromError(c, err)
		return
	}

	session, err := h.sessionService.Create(user, c.ClientIP(), c.Request.UserAgent(), nil)
	if err != nil {
		response.ServerError(c, "创建会话失败")
		return
	}

	token, err := jwt.GetJWTManager().GenerateToken(user.ID, user.TenantID, session.ID, user.Username, user.IsPlatformAdmin)
	if err != nil {
		response.ServerError(c, "生成Token失败")
		return
	}

	response.Success(c, LoginResponse{Token: token, User: user})
}

// Logout 用户登出 - 吊销当前会话
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, exists := c.Get("session_id")
	if !exists {
		response.Unauthorized(c, "请先登录")
		return
	}

	if err := h.sessionService.Revoke(actorFromContext(c), sessionID.(uint)); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已登出", nil)
}

// Me 获取当前用户信息
func (h *AuthHandler) Me(c *gin.Context) {
	user, exists := c.Get("user")
	if !exists {
		response.Unauthorized(c, "请先登录")
		return
	}

	response.Success(c, user)
}

// Impersonate 管理员代登录 - 为目标用户创建带impersonator标记的会话
func (h *AuthHandler) Impersonate(c *gin.Context) {
	targetID, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	actor := actorFromContext(c)
	tenantID := tenantIDFromContext(c)

	target, err := h.userService.GetByID(tenantID, targetID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	impersonatorID := actor.UserID
	session, err := h.sessionService.Create(target, c.ClientIP(), c.Request.UserAgent(), &impersonatorID)
	if err != nil {
		response.ServerError(c, "创建会话失败")
		return
	}

	token, err := jwt.GetJWTManager().GenerateToken(target.ID, target.TenantID, session.ID, target.Username, target.IsPlatformAdmin)
	if err != nil {
		response.ServerError(c, "生成Token失败")
		return
	}

	response.Success(c, LoginResponse{Token: token, User: target})
}

// Sessions 查看当前用户的有效会话
func (h *AuthHandler) Sessions(c *gin.Context) {
	actor := actorFromContext(c)
	tenantID := tenantIDFromContext(c)

	sessions, err := h.sessionService.GetActiveForUser(tenantID, actor.UserID)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, sessions)
}
