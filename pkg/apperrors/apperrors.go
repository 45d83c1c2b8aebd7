package apperrors

import (
	"errors"
	"net/http"
)

// 业务错误码常量 - 前端按码做分支，message只用于展示
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"

	CodeTenantNotFound                 = "TENANT_NOT_FOUND"
	CodeTenantCodeExists               = "TENANT_CODE_EXISTS"
	CodeDefaultTenantCodeNotModifiable = "DEFAULT_TENANT_CODE_NOT_MODIFIABLE"
	CodeDefaultTenantNotDeletable      = "DEFAULT_TENANT_NOT_DELETABLE"
	CodeTenantHasUsers                 = "TENANT_HAS_USERS"
	CodeOrganizationHasChildren        = "ORGANIZATION_HAS_CHILDREN"
	CodeOrganizationHasUsers           = "ORGANIZATION_HAS_USERS"
	CodePermissionInUse                = "PERMISSION_IN_USE"
	CodeSystemResourceProtected        = "SYSTEM_RESOURCE_PROTECTED"
)

// AppError 业务错误 - 携带HTTP状态码和业务错误码
type AppError struct {
	Status  int    // HTTP状态码
	Code    string // 业务错误码
	Message string // 用户可读的错误描述
}

func (e *AppError) Error() string {
	return e.Message
}

// New 创建业务错误
func New(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

// NewValidation 参数校验错误 - 400
func NewValidation(message string) *AppError {
	return New(http.StatusBadRequest, CodeValidation, message)
}

// NewNotFound 资源不存在 - 404
func NewNotFound(code, message string) *AppError {
	return New(http.StatusNotFound, code, message)
}

// NewConflict 资源冲突 - 409
func NewConflict(code, message string) *AppError {
	return New(http.StatusConflict, code, message)
}

// NewForbidden 操作被拒绝 - 403
func NewForbidden(code, message string) *AppError {
	return New(http.StatusForbidden, code, message)
}

// NewInternal 内部错误 - 500
func NewInternal(message string) *AppError {
	return New(http.StatusInternalServerError, CodeInternal, message)
}

// AsAppError 从错误链中提取业务错误
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
