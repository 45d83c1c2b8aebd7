package handlers

import (
	"adminhub/internal/services"
	"adminhub/pkg/pagination"
	"adminhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// CreateRoleRequest 请求结构体
type CreateRoleRequest struct {
	ParentID    *uint  `json:"parent_id"`
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateRoleRequest struct {
	ParentID    *uint  `json:"parent_id"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type AssignPermissionsRequest struct {
	PermissionIDs []uint `json:"permission_ids" binding:"required"`
}

type DataRuleRequest struct {
	RuleID uint `json:"rule_id" binding:"required"`
}

type RoleHandler struct {
	service *services.RoleService
}

func NewRoleHandler(service *services.RoleService) *RoleHandler {
	return &RoleHandler{service: service}
}

// Create 创建角色
func (h *RoleHandler) Create(c *gin.Context) {
	var req CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	role, err := h.service.Create(actorFromContext(c), tenantIDFromContext(c), services.RoleInput{
		ParentID:    req.ParentID,
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, role)
}

// GetByID 获取角色（含权限列表）
func (h *RoleHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	role, err := h.service.GetByID(tenantIDFromContext(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, role)
}

// GetAll 分页查询角色
func (h *RoleHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)
	status := c.Query("status")

	roles, total, err := h.service.GetByTenantWithPage(tenantIDFromContext(c), status, pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, roles, pageInfo)
}

// Update 更新角色
func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	role, err := h.service.Update(actorFromContext(c), tenantIDFromContext(c), id, services.RoleInput{
		ParentID:    req.ParentID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, role)
}

// Delete 删除角色
func (h *RoleHandler) Delete(c *gin.Context) {
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

// AssignPermissions 全量替换角色权限
func (h *RoleHandler) AssignPermissions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req AssignPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	if err := h.service.AssignPermissions(actorFromContext(c), tenantIDFromContext(c), id, req.PermissionIDs); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "权限已更新", nil)
}

// AddPermissions 增量授权（幂等）
func (h *RoleHandler) AddPermissions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req AssignPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	if err := h.service.AddPermissions(actorFromContext(c), tenantIDFromContext(c), id, req.PermissionIDs); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "权限已追加", nil)
}

// GetPermissions 查询角色已授权的权限
func (h *RoleHandler) GetPermissions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	permissions, err := h.service.GetRolePermissions(tenantIDFromContext(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, permissions)
}

// AttachDataRule 绑定数据权限规则
func (h *RoleHandler) AttachDataRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req DataRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	if err := h.service.AttachDataRule(actorFromContext(c), tenantIDFromContext(c), id, req.RuleID); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "数据权限已绑定", nil)
}

// DetachDataRule 解绑数据权限规则
func (h *RoleHandler) DetachDataRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	ruleID, ok := parseIDParam(c, "ruleId")
	if !ok {
		response.BadRequest(c, "规则ID格式错误")
		return
	}

	if err := h.service.DetachDataRule(actorFromContext(c), tenantIDFromContext(c), id, ruleID); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "数据权限已解绑", nil)
}
