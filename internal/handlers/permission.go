package handlers

import (
	"strconv"

	"adminhub/internal/services"
	"adminhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// CreatePermissionRequest 请求结构体
type CreatePermissionRequest struct {
	ParentID     *uint  `json:"parent_id"`
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	Type         string `json:"type" binding:"required"`
	FrontPath    string `json:"front_path"`
	APIPath      string `json:"api_path"`
	Method       string `json:"method"`
	ResourceType string `json:"resource_type"`
	SortOrder    int    `json:"sort_order"`
}

type UpdatePermissionRequest struct {
	ParentID     *uint  `json:"parent_id"`
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	FrontPath    string `json:"front_path"`
	APIPath      string `json:"api_path"`
	Method       string `json:"method"`
	ResourceType string `json:"resource_type"`
	SortOrder    int    `json:"sort_order"`
}

type PermissionHandler struct {
	service *services.PermissionService
}

func NewPermissionHandler(service *services.PermissionService) *PermissionHandler {
	return &PermissionHandler{service: service}
}

// Create 创建权限
func (h *PermissionHandler) Create(c *gin.Context) {
	var req CreatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	permission, err := h.service.Create(actorFromContext(c), tenantIDFromContext(c), services.PermissionInput{
		ParentID:     req.ParentID,
		Code:         req.Code,
		Name:         req.Name,
		Description:  req.Description,
		Type:         req.Type,
		FrontPath:    req.FrontPath,
		APIPath:      req.APIPath,
		Method:       req.Method,
		ResourceType: req.ResourceType,
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, permission)
}

// GetByID 获取权限
func (h *PermissionHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	permission, err := h.service.GetByID(tenantIDFromContext(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, permission)
}

// GetAll 查询权限列表（可按类型过滤）
func (h *PermissionHandler) GetAll(c *gin.Context) {
	permType := c.Query("type")

	permissions, err := h.service.GetByTenant(tenantIDFromContext(c), permType)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, permissions)
}

// GetTree 获取权限树
//
// exclude 参数用于"移动节点选择新父节点"的场景：
// 排除指定节点及其整个子树，避免把节点挂到自己的后代下面
func (h *PermissionHandler) GetTree(c *gin.Context) {
	var excludeID uint
	if raw := c.Query("exclude"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			response.BadRequest(c, "exclude参数格式错误")
			return
		}
		excludeID = uint(parsed)
	}

	tree, err := h.service.GetTree(tenantIDFromContext(c), excludeID)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, tree)
}

// GetPath 获取权限的面包屑路径
func (h *PermissionHandler) GetPath(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	path, err := h.service.GetPath(tenantIDFromContext(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, gin.H{"path": path})
}

// GetUsage 获取权限的使用统计
func (h *PermissionHandler) GetUsage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	usage, err := h.service.GetUsage(tenantIDFromContext(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, usage)
}

// Update 更新权限
func (h *PermissionHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req UpdatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	permission, err := h.service.Update(actorFromContext(c), tenantIDFromContext(c), id, services.PermissionInput{
		ParentID:     req.ParentID,
		Name:         req.Name,
		Description:  req.Description,
		FrontPath:    req.FrontPath,
		APIPath:      req.APIPath,
		Method:       req.Method,
		ResourceType: req.ResourceType,
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, permission)
}

// Delete 删除权限 - 子节点会被提升到被删节点的父节点下
func (h *PermissionHandler) Delete(c *gin.Context) {
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
