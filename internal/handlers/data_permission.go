package handlers

import (
	"adminhub/internal/services"
	"adminhub/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

// CreateDataPermissionRequest 请求结构体
type CreateDataPermissionRequest struct {
	Name        string         `json:"name" binding:"required"`
	Description string         `json:"description"`
	RuleType    string         `json:"rule_type" binding:"required"`
	Scope       datatypes.JSON `json:"scope"`
}

type DataPermissionHandler struct {
	service *services.DataPermissionService
}

func NewDataPermissionHandler(service *services.DataPermissionService) *DataPermissionHandler {
	return &DataPermissionHandler{service: service}
}

// Create 创建数据权限规则
func (h *DataPermissionHandler) Create(c *gin.Context) {
	var req CreateDataPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	rule, err := h.service.Create(actorFromContext(c), tenantIDFromContext(c), req.Name, req.Description, req.RuleType, req.Scope)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, rule)
}

// GetByID 获取数据权限规则
func (h *DataPermissionHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	rule, err := h.service.GetByID(tenantIDFromContext(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, rule)
}

// GetAll 查询数据权限规则列表
func (h *DataPermissionHandler) GetAll(c *gin.Context) {
	rules, err := h.service.GetByTenant(tenantIDFromContext(c))
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, rules)
}

// Delete 删除数据权限规则
func (h *DataPermissionHandler) Delete(c *gin.Context) {
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

// ResolveForUser 解析某个用户生效的数据权限（多规则取最宽松）
func (h *DataPermissionHandler) ResolveForUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		response.BadRequest(c, "用户ID格式错误")
		return
	}

	rule, err := h.service.ResolveForUser(tenantIDFromContext(c), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, rule)
}
