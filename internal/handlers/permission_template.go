package handlers

import (
	"adminhub/internal/services"
	"adminhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// CreatePermissionTemplateRequest 请求结构体
type CreatePermissionTemplateRequest struct {
	Name            string   `json:"name" binding:"required"`
	Description     string   `json:"description"`
	PermissionCodes []string `json:"permission_codes" binding:"required"`
}

type ApplyTemplateRequest struct {
	RoleID uint `json:"role_id" binding:"required"`
}

type PermissionTemplateHandler struct {
	service *services.PermissionTemplateService
}

func NewPermissionTemplateHandler(service *services.PermissionTemplateService) *PermissionTemplateHandler {
	return &PermissionTemplateHandler{service: service}
}

// Create 创建权限模板
func (h *PermissionTemplateHandler) Create(c *gin.Context) {
	var req CreatePermissionTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	template, err := h.service.Create(actorFromContext(c), tenantIDFromContext(c), req.Name, req.Description, req.PermissionCodes)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, template)
}

// GetByID 获取权限模板
func (h *PermissionTemplateHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	template, err := h.service.GetByID(tenantIDFromContext(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, template)
}

// GetAll 查询权限模板列表
func (h *PermissionTemplateHandler) GetAll(c *gin.Context) {
	templates, err := h.service.GetByTenant(tenantIDFromContext(c))
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, templates)
}

// Apply 把模板应用到角色（增量、幂等）
func (h *PermissionTemplateHandler) Apply(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req ApplyTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	if err := h.service.Apply(actorFromContext(c), tenantIDFromContext(c), id, req.RoleID); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "模板已应用", nil)
}

// Delete 删除权限模板
func (h *PermissionTemplateHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	if err := h.service.Delete(actorFromContext(c), tenantIDFromContext(c), id); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, nil)
}
