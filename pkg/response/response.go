package response

import (
	"net/http"

	"adminhub/pkg/apperrors"
	"adminhub/pkg/pagination"

	"github.com/gin-gonic/gin"
)

// Response 统一返回格式
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody 错误信息
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PageResponse 分页返回格式
type PageResponse struct {
	Success  bool                 `json:"success"`
	Message  string               `json:"message,omitempty"`
	Data     interface{}          `json:"data,omitempty"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

// ========== 基础返回方法 ==========

// Success 成功返回
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMessage 成功返回（自定义消息）
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// SuccessWithPage 分页成功返回
func SuccessWithPage(c *gin.Context, data interface{}, pageInfo *pagination.PageInfo) {
	c.JSON(http.StatusOK, PageResponse{
		Success:  true,
		Data:     data,
		PageInfo: pageInfo,
	})
}

// Error 通用错误返回
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{
		Success: false,
		Error: &ErrorBody{
			Code:    code,
			Message: message,
		},
	})
}

// FromError 根据错误类型返回 - 业务错误带码返回，其余一律500
func FromError(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		Error(c, appErr.Status, appErr.Code, appErr.Message)
		return
	}
	ServerError(c, "服务器内部错误")
}

// ========== HTTP错误快捷方法 ==========

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, apperrors.CodeValidation, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, apperrors.CodeUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, apperrors.CodeForbidden, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, apperrors.CodeNotFound, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, apperrors.CodeConflict, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, apperrors.CodeInternal, message)
}
