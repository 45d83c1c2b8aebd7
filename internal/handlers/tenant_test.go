package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"adminhub/internal/models"
	"adminhub/internal/services"
	"adminhub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTenantRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Tenant{}, &models.User{}, &models.SystemLog{}))

	audit := services.NewAuditService(db, 16)
	audit.Start()
	t.Cleanup(audit.Stop)

	handler := NewTenantHandler(services.NewTenantService(db, audit))

	r := gin.New()
	// 测试里直接注入操作人，跳过登录链路
	r.Use(func(c *gin.Context) {
		c.Set("user_id", uint(1))
		c.Set("username", "tester")
	})
	group := r.Group("/api/v1/tenants")
	{
		group.POST("", handler.Create)
		group.GET("/:id", handler.GetByID)
		group.GET("", handler.GetAll)
		group.PUT("/:id", handler.Update)
		group.DELETE("/:id", handler.Delete)
		group.PUT("/:id/status", handler.ChangeStatus)
	}
	return r, db
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var envelope response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return w, envelope
}

func TestTenantHandlerCreate(t *testing.T) {
	r, _ := setupTenantRouter(t)

	w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/tenants", gin.H{
		"name": "测试租户", "code": "acme",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, envelope.Success)
	require.NotNil(t, envelope.Data)
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, "acme", data["code"])
	assert.Equal(t, models.TenantStatusActive, data["status"])
}

func TestTenantHandlerCreateDuplicateCode(t *testing.T) {
	r, _ := setupTenantRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/tenants", gin.H{"name": "测试租户", "code": "acme"})
	require.Equal(t, http.StatusOK, w.Code)

	w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/tenants", gin.H{"name": "另一个", "code": "acme"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "TENANT_CODE_EXISTS", envelope.Error.Code)
}

func TestTenantHandlerBadRequest(t *testing.T) {
	r, _ := setupTenantRouter(t)

	// 缺少必填字段
	w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/tenants", gin.H{"name": "没有代码"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)

	// ID格式错误
	w, envelope = doJSON(t, r, http.MethodGet, "/api/v1/tenants/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, envelope.Error)
}

func TestTenantHandlerNotFound(t *testing.T) {
	r, _ := setupTenantRouter(t)

	w, envelope := doJSON(t, r, http.MethodGet, "/api/v1/tenants/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "TENANT_NOT_FOUND", envelope.Error.Code)
}

func TestTenantHandlerDefaultTenantProtected(t *testing.T) {
	r, db := setupTenantRouter(t)

	def := &models.Tenant{Name: "默认租户", Code: models.DefaultTenantCode, Status: models.TenantStatusActive}
	require.NoError(t, db.Create(def).Error)

	w, envelope := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/tenants/%d", def.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "DEFAULT_TENANT_NOT_DELETABLE", envelope.Error.Code)

	// 默认租户的代码不可修改
	w, envelope = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/v1/tenants/%d", def.ID), gin.H{
		"name": "默认租户", "code": "renamed",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "DEFAULT_TENANT_CODE_NOT_MODIFIABLE", envelope.Error.Code)
}

func TestTenantHandlerChangeStatus(t *testing.T) {
	r, db := setupTenantRouter(t)

	tenant := &models.Tenant{Name: "测试租户", Code: "acme", Status: models.TenantStatusActive}
	require.NoError(t, db.Create(tenant).Error)

	w, envelope := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/v1/tenants/%d/status", tenant.ID), gin.H{
		"status": models.TenantStatusSuspended,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.Message)
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, models.TenantStatusSuspended, data["status"])

	// 非法状态
	w, envelope = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/v1/tenants/%d/status", tenant.ID), gin.H{
		"status": "frozen",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, envelope.Error)
}

func TestTenantHandlerGetAllPaged(t *testing.T) {
	r, db := setupTenantRouter(t)

	for i := 1; i <= 3; i++ {
		require.NoError(t, db.Create(&models.Tenant{
			Name: fmt.Sprintf("租户%d", i), Code: fmt.Sprintf("t%d", i), Status: models.TenantStatusActive,
		}).Error)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants?page=1&page_size=2", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.PageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	require.NotNil(t, envelope.PageInfo)
	assert.Equal(t, int64(3), envelope.PageInfo.Total)
	assert.Len(t, envelope.Data.([]interface{}), 2)
}
