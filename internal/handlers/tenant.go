package handlers

import (
	"adminhub/internal/services"
	"adminhub/pkg/pagination"
	"adminhub/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

// CreateTenantRequest 请求结构体
type CreateTenantRequest struct {
	Name     string            `json:"name" binding:"required"`
	Code     string            `json:"code" binding:"required"`
	Settings datatypes.JSONMap `json:"settings"`
}

type UpdateTenantRequest struct {
	Name     string            `json:"name" binding:"required"`
	Code     string            `json:"code"`
	Settings datatypes.JSONMap `json:"settings"`
}

type ChangeTenantStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type TenantHandler struct {
	service *services.TenantService
}

func NewTenantHandler(service *services.TenantService) *TenantHandler {
	return &TenantHandler{service: service}
}

// Create 创建租户
func (h *TenantHandler) Create(c *gin.Context) {
	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	tenant, err := h.service.Create(actorFromContext(c), req.Name, req.Code, req.Settings)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, tenant)
}

// GetByID 获取租户
func (h *TenantHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	tenant, err := h.service.GetByID(id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	userCount, err := h.service.UserCount(id)
	if err == nil {
		tenant.UserCount = int(userCount)
	}

	response.Success(c, tenant)
}

// GetAll 分页查询租户
func (h *TenantHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)
	status := c.Query("status")
	keyword := c.Query("keyword")

	tenants, total, err := h.service.GetWithFiltersAndPage(status, keyword, pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, tenants, pageInfo)
}

// Update 更新租户
func (h *TenantHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	tenant, err := h.service.Update(actorFromContext(c), id, req.Name, req.Code, req.Settings)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, tenant)
}

// Delete 删除租户
func (h *TenantHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	if err := h.service.Delete(actorFromContext(c), id); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, nil)
}

// ChangeStatus 切换租户状态
func (h *TenantHandler) ChangeStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req ChangeTenantStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	tenant, err := h.service.ChangeStatus(actorFromContext(c), id, req.Status)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "租户状态已更新", tenant)
}

// GetStats 获取租户统计
func (h *TenantHandler) GetStats(c *gin.Context) {
	stats, err := h.service.GetStats()
	if err != nil {
		response.ServerError(c, "获取统计失败")
		return
	}

	response.Success(c, stats)
}
