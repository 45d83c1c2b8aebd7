package router

import (
	"time"

	"adminhub/internal/database"
	"adminhub/internal/handlers"
	"adminhub/internal/middleware"
	"adminhub/internal/services"
	"adminhub/pkg/config"
	"adminhub/pkg/response"

	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter(audit *services.AuditService) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS())

	registerRoutes(router, audit)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine, audit *services.AuditService) {
	db := database.GetDB()
	redisCache := database.GetRedisCache()

	sessionDuration, err := time.ParseDuration(config.GetConfig().Session.Duration)
	if err != nil {
		sessionDuration = 24 * time.Hour
	}

	userService := services.NewUserService(db, audit, redisCache)
	sessionService := services.NewSessionService(db, audit, redisCache, sessionDuration)
	tenantService := services.NewTenantService(db, audit)
	roleService := services.NewRoleService(db, audit, redisCache)
	permissionService := services.NewPermissionService(db, audit)
	templateService := services.NewPermissionTemplateService(db, audit, roleService)
	orgService := services.NewOrganizationService(db, audit)
	dataPermService := services.NewDataPermissionService(db, audit)

	auth := middleware.NewAuthMiddleware(userService, sessionService)

	// API路由组
	api := router.Group("/api/v1")
	{
		// 健康检查接口
		api.GET("/health", healthCheck)
		api.GET("/ping", ping)

		// 认证路由
		authHandler := handlers.NewAuthHandler(userService, sessionService)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/logout", auth.RequireLogin(), authHandler.Logout)
			authGroup.GET("/me", auth.RequireLogin(), authHandler.Me)
			authGroup.GET("/sessions", auth.RequireLogin(), authHandler.Sessions)

			// 代登录（需要专门权限）
			authGroup.POST("/impersonate/:id", auth.RequireLogin(), auth.RequirePermission("user:impersonate"), authHandler.Impersonate)
		}

		// 租户路由（平台级管理）
		tenantHandler := handlers.NewTenantHandler(tenantService)
		tenants := api.Group("/tenants")
		{
			tenants.POST("", auth.RequireLogin(), auth.RequirePlatformAdmin(), tenantHandler.Create)
			tenants.GET("", auth.RequireLogin(), auth.RequirePlatformAdmin(), tenantHandler.GetAll)
			tenants.GET("/stats", auth.RequireLogin(), auth.RequirePlatformAdmin(), tenantHandler.GetStats)
			tenants.GET("/:id", auth.RequireLogin(), auth.RequirePlatformAdmin(), tenantHandler.GetByID)
			tenants.PUT("/:id", auth.RequireLogin(), auth.RequirePlatformAdmin(), tenantHandler.Update)
			tenants.DELETE("/:id", auth.RequireLogin(), auth.RequirePlatformAdmin(), tenantHandler.Delete)
			tenants.PUT("/:id/status", auth.RequireLogin(), auth.RequirePlatformAdmin(), tenantHandler.ChangeStatus)
		}

		// 用户路由
		userHandler := handlers.NewUserHandler(userService, sessionService)
		users := api.Group("/users")
		{
			users.POST("", auth.RequireLogin(), auth.RequirePermission("user:create"), userHandler.Create)
			users.GET("", auth.RequireLogin(), auth.RequirePermission("user:list"), userHandler.GetAll)
			users.GET("/stats", auth.RequireLogin(), auth.RequirePermission("user:list"), userHandler.GetStats)
			users.GET("/:id", auth.RequireLogin(), auth.RequirePermission("user:read"), userHandler.GetByID)
			users.PUT("/:id", auth.RequireLogin(), auth.RequirePermission("user:update"), userHandler.Update)
			users.DELETE("/:id", auth.RequireLogin(), auth.RequirePermission("user:delete"), userHandler.Delete)

			users.PUT("/:id/status", auth.RequireLogin(), auth.RequirePermission("user:update"), userHandler.ChangeStatus)
			users.PUT("/:id/role", auth.RequireLogin(), auth.RequirePermission("user:assign_role"), userHandler.AssignRole)
			users.POST("/:id/reset-password", auth.RequireLogin(), auth.RequirePermission("user:update"), userHandler.ResetPassword)
			users.GET("/:id/permissions", auth.RequireLogin(), auth.RequirePermission("user:read"), userHandler.GetPermissions)
		}

		// 角色路由
		roleHandler := handlers.NewRoleHandler(roleService)
		roles := api.Group("/roles")
		{
			roles.POST("", auth.RequireLogin(), auth.RequirePermission("role:create"), roleHandler.Create)
			roles.GET("", auth.RequireLogin(), auth.RequirePermission("role:list"), roleHandler.GetAll)
			roles.GET("/:id", auth.RequireLogin(), auth.RequirePermission("role:read"), roleHandler.GetByID)
			roles.PUT("/:id", auth.RequireLogin(), auth.RequirePermission("role:update"), roleHandler.Update)
			roles.DELETE("/:id", auth.RequireLogin(), auth.RequirePermission("role:delete"), roleHandler.Delete)

			// 授权管理
			roles.GET("/:id/permissions", auth.RequireLogin(), auth.RequirePermission("role:read"), roleHandler.GetPermissions)
			roles.PUT("/:id/permissions", auth.RequireLogin(), auth.RequirePermission("role:grant"), roleHandler.AssignPermissions)
			roles.POST("/:id/permissions", auth.RequireLogin(), auth.RequirePermission("role:grant"), roleHandler.AddPermissions)

			// 数据权限绑定
			roles.POST("/:id/data-rules", auth.RequireLogin(), auth.RequirePermission("role:grant"), roleHandler.AttachDataRule)
			roles.DELETE("/:id/data-rules/:ruleId", auth.RequireLogin(), auth.RequirePermission("role:grant"), roleHandler.DetachDataRule)
		}

		// 权限路由
		permissionHandler := handlers.NewPermissionHandler(permissionService)
		permissions := api.Group("/permissions")
		{
			permissions.POST("", auth.RequireLogin(), auth.RequirePermission("permission:create"), permissionHandler.Create)
			permissions.GET("", auth.RequireLogin(), auth.RequirePermission("permission:list"), permissionHandler.GetAll)
			permissions.GET("/tree", auth.RequireLogin(), auth.RequirePermission("permission:list"), permissionHandler.GetTree)
			permissions.GET("/:id", auth.RequireLogin(), auth.RequirePermission("permission:read"), permissionHandler.GetByID)
			permissions.PUT("/:id", auth.RequireLogin(), auth.RequirePermission("permission:update"), permissionHandler.Update)
			permissions.DELETE("/:id", auth.RequireLogin(), auth.RequirePermission("permission:delete"), permissionHandler.Delete)

			permissions.GET("/:id/path", auth.RequireLogin(), auth.RequirePermission("permission:read"), permissionHandler.GetPath)
			permissions.GET("/:id/usage", auth.RequireLogin(), auth.RequirePermission("permission:read"), permissionHandler.GetUsage)
		}

		// 权限模板路由
		templateHandler := handlers.NewPermissionTemplateHandler(templateService)
		templates := api.Group("/permission-templates")
		{
			templates.POST("", auth.RequireLogin(), auth.RequirePermission("permission_template:create"), templateHandler.Create)
			templates.GET("", auth.RequireLogin(), auth.RequirePermission("permission_template:list"), templateHandler.GetAll)
			templates.GET("/:id", auth.RequireLogin(), auth.RequirePermission("permission_template:read"), templateHandler.GetByID)
			templates.DELETE("/:id", auth.RequireLogin(), auth.RequirePermission("permission_template:delete"), templateHandler.Delete)

			templates.POST("/:id/apply", auth.RequireLogin(), auth.RequirePermission("permission_template:apply"), templateHandler.Apply)
		}

		// 组织路由
		orgHandler := handlers.NewOrganizationHandler(orgService)
		orgs := api.Group("/organizations")
		{
			orgs.POST("", auth.RequireLogin(), auth.RequirePermission("organization:create"), orgHandler.Create)
			orgs.GET("/tree", auth.RequireLogin(), auth.RequirePermission("organization:list"), orgHandler.GetTree)
			orgs.GET("/:id", auth.RequireLogin(), auth.RequirePermission("organization:read"), orgHandler.GetByID)
			orgs.PUT("/:id", auth.RequireLogin(), auth.RequirePermission("organization:update"), orgHandler.Update)
			orgs.DELETE("/:id", auth.RequireLogin(), auth.RequirePermission("organization:delete"), orgHandler.Delete)

			orgs.GET("/:id/check-deletable", auth.RequireLogin(), auth.RequirePermission("organization:delete"), orgHandler.CheckDeletable)

			// 成员管理
			orgs.GET("/:id/members", auth.RequireLogin(), auth.RequirePermission("organization:read"), orgHandler.GetMembers)
			orgs.POST("/:id/members", auth.RequireLogin(), auth.RequirePermission("organization:manage_members"), orgHandler.AddMember)
			orgs.DELETE("/:id/members/:userId", auth.RequireLogin(), auth.RequirePermission("organization:manage_members"), orgHandler.RemoveMember)
		}

		// 数据权限路由
		dataPermHandler := handlers.NewDataPermissionHandler(dataPermService)
		dataPerms := api.Group("/data-permissions")
		{
			dataPerms.POST("", auth.RequireLogin(), auth.RequirePermission("data_permission:create"), dataPermHandler.Create)
			dataPerms.GET("", auth.RequireLogin(), auth.RequirePermission("data_permission:list"), dataPermHandler.GetAll)
			dataPerms.GET("/:id", auth.RequireLogin(), auth.RequirePermission("data_permission:read"), dataPermHandler.GetByID)
			dataPerms.DELETE("/:id", auth.RequireLogin(), auth.RequirePermission("data_permission:delete"), dataPermHandler.Delete)

			dataPerms.GET("/users/:userId", auth.RequireLogin(), auth.RequirePermission("data_permission:read"), dataPermHandler.ResolveForUser)
		}

		// 审计日志路由
		logHandler := handlers.NewSystemLogHandler(audit, userService)
		logs := api.Group("/logs")
		{
			logs.GET("", auth.RequireLogin(), auth.RequirePermission("log:view"), logHandler.GetAll)

			// WebSocket实时推送（token走查询参数，权限在handler内检查）
			logs.GET("/tail", logHandler.Tail)
		}
	}
}

func healthCheck(c *gin.Context) {
	data := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"service":   "AdminHub",
		"version":   "1.0.0",
	}
	response.Success(c, data)
}

func ping(c *gin.Context) {
	response.SuccessWithMessage(c, "pong", nil)
}
