package handlers

import (
	"adminhub/internal/services"
	"adminhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// CreateOrganizationRequest 请求结构体
type CreateOrganizationRequest struct {
	ParentID  *uint  `json:"parent_id"`
	Code      string `json:"code" binding:"required"`
	Name      string `json:"name" binding:"required"`
	LeaderID  *uint  `json:"leader_id"`
	SortOrder int    `json:"sort_order"`
}

type UpdateOrganizationRequest struct {
	ParentID  *uint  `json:"parent_id"`
	Name      string `json:"name" binding:"required"`
	LeaderID  *uint  `json:"leader_id"`
	SortOrder int    `json:"sort_order"`
}

type AddMemberRequest struct {
	UserID   uint   `json:"user_id" binding:"required"`
	Position string `json:"position"`
	IsMain   bool   `json:"is_main"`
}

type OrganizationHandler struct {
	service *services.OrganizationService
}

func NewOrganizationHandler(service *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{service: service}
}

// Create 创建组织
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	org, err := h.service.Create(actorFromContext(c), tenantIDFromContext(c), services.OrganizationInput{
		ParentID:  req.ParentID,
		Code:      req.Code,
		Name:      req.Name,
		LeaderID:  req.LeaderID,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, org)
}

// GetByID 获取组织
func (h *OrganizationHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	org, err := h.service.GetByID(tenantIDFromContext(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, org)
}

// GetTree 获取组织树（含成员数、负责人摘要）
func (h *OrganizationHandler) GetTree(c *gin.Context) {
	tree, err := h.service.GetTree(tenantIDFromContext(c))
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	response.Success(c, tree)
}

// Update 更新组织 - 支持移动到新父节点
func (h *OrganizationHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	org, err := h.service.Update(actorFromContext(c), tenantIDFromContext(c), id, services.OrganizationInput{
		ParentID:  req.ParentID,
		Name:      req.Name,
		LeaderID:  req.LeaderID,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, org)
}

// CheckDeletable 删除前预检
func (h *OrganizationHandler) CheckDeletable(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	check, err := h.service.CheckDeletable(tenantIDFromContext(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, check)
}

// Delete 删除组织
func (h *OrganizationHandler) Delete(c *gin.Context) {
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

// AddMember 添加组织成员
func (h *OrganizationHandler) AddMember(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	if err := h.service.AddMember(actorFromContext(c), tenantIDFromContext(c), id, req.UserID, req.Position, req.IsMain); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "成员已添加", nil)
}

// RemoveMember 移除组织成员
func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	userID, ok := parseIDParam(c, "userId")
	if !ok {
		response.BadRequest(c, "用户ID格式错误")
		return
	}

	if err := h.service.RemoveMember(actorFromContext(c), tenantIDFromContext(c), id, userID); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "成员已移除", nil)
}

// GetMembers 查询组织成员
func (h *OrganizationHandler) GetMembers(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	members, err := h.service.GetMembers(tenantIDFromContext(c), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, members)
}
