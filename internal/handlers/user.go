package handlers

import (
	"adminhub/internal/services"
	"adminhub/pkg/pagination"
	"adminhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// CreateUserRequest 请求结构体
type CreateUserRequest struct {
	Username string  `json:"username" binding:"required"`
	Email    string  `json:"email" binding:"required"`
	Password string  `json:"password" binding:"required"`
	Name     string  `json:"name" binding:"required"`
	Phone    *string `json:"phone"`
	RoleID   *uint   `json:"role_id"`
}

type UpdateUserRequest struct {
	Name   string  `json:"name" binding:"required"`
	Phone  *string `json:"phone"`
	Avatar *string `json:"avatar"`
	RoleID *uint   `json:"role_id"`
}

type ChangeUserStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type AssignRoleRequest struct {
	RoleID *uint `json:"role_id"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

type UserHandler struct {
	service        *services.UserService
	sessionService *services.SessionService
}

func NewUserHandler(service *services.UserService, sessionService *services.SessionService) *UserHandler {
	return &UserHandler{service: service, sessionService: sessionService}
}

// Create 创建用户
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	user, err := h.service.Create(actorFromContext(c), tenantIDFromContext(c), services.UserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		RoleID:   req.RoleID,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, user)
}

// GetByID 获取用户
func (h *UserHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	user, err := h.service.GetByID(tenantIDFromContext(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, user)
}

// GetAll 分页查询用户
func (h *UserHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)
	status := c.Query("status")
	keyword := c.Query("keyword")

	users, total, err := h.service.GetWithFiltersAndPage(tenantIDFromContext(c), status, keyword, pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, users, pageInfo)
}

// Update 更新用户
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	user, err := h.service.Update(actorFromContext(c), tenantIDFromContext(c), id, services.UserInput{
		Name:   req.Name,
		Phone:  req.Phone,
		Avatar: req.Avatar,
		RoleID: req.RoleID,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, user)
}

// Delete 软删除用户并吊销其全部会话
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	actor := actorFromContext(c)
	tenantID := tenantIDFromContext(c)

	if err := h.service.SoftDelete(actor, tenantID, id); err != nil {
		response.FromError(c, err)
		return
	}
	if err := h.sessionService.RevokeAllForUser(actor, tenantID, id); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, nil)
}

// ChangeStatus 切换用户状态
func (h *UserHandler) ChangeStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req ChangeUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	user, err := h.service.ChangeStatus(actorFromContext(c), tenantIDFromContext(c), id, req.Status)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "用户状态已更新", user)
}

// AssignRole 给用户分配角色
func (h *UserHandler) AssignRole(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	user, err := h.service.AssignRole(actorFromContext(c), tenantIDFromContext(c), id, req.RoleID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, user)
}

// ResetPassword 重置密码
func (h *UserHandler) ResetPassword(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	if err := h.service.ResetPassword(actorFromContext(c), tenantIDFromContext(c), id, req.Password); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "密码已重置", nil)
}

// GetPermissions 查看用户解析后的权限代码集合
func (h *UserHandler) GetPermissions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	// 先做租户隔离检查
	if _, err := h.service.GetByID(tenantIDFromContext(c), id); err != nil {
		response.FromError(c, err)
		return
	}

	codes, err := h.service.GetPermissionCodes(id)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, codes)
}

// GetStats 获取用户统计
func (h *UserHandler) GetStats(c *gin.Context) {
	stats, err := h.service.GetStats(tenantIDFromContext(c))
	if err != nil {
		response.ServerError(c, "获取统计失败")
		return
	}

	response.Success(c, stats)
}
