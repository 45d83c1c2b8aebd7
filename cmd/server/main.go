package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adminhub/internal/database"
	"adminhub/internal/router"
	"adminhub/internal/services"
	"adminhub/pkg/config"
	"adminhub/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting AdminHub...")

	// 初始化数据库
	if err := database.Initialize(cfg); err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			appLogger.Error("Failed to close database:", err)
		}
		if err := database.CloseRedisCache(); err != nil {
			appLogger.Error("Failed to close Redis:", err)
		}
	}()

	// 执行数据库迁移
	if err := database.Migrate(); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	// 执行种子数据初始化
	if err := seedData(); err != nil {
		appLogger.Fatalf("Failed to initialize seed data: %v", err)
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 启动审计日志异步写入
	auditService := services.NewAuditService(database.GetDB(), cfg.Audit.BufferSize)
	auditService.Start()
	defer auditService.Stop()

	// 定时任务：过期会话清理 + 审计日志按保留期清理
	sessionDuration, err := time.ParseDuration(cfg.Session.Duration)
	if err != nil {
		sessionDuration = 24 * time.Hour
	}
	sessionService := services.NewSessionService(database.GetDB(), auditService, database.GetRedisCache(), sessionDuration)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Session.CleanupSchedule, func() {
		deleted, err := sessionService.CleanupExpired()
		if err != nil {
			appLogger.Errorf("Failed to cleanup expired sessions: %v", err)
			return
		}
		if deleted > 0 {
			appLogger.Infof("Cleaned up %d expired sessions", deleted)
		}
	}); err != nil {
		appLogger.Errorf("Failed to schedule session cleanup: %v", err)
	}
	if _, err := scheduler.AddFunc(cfg.Audit.CleanupSchedule, func() {
		deleted, err := auditService.CleanupExpired(cfg.Audit.RetentionDays)
		if err != nil {
			appLogger.Errorf("Failed to cleanup audit logs: %v", err)
			return
		}
		if deleted > 0 {
			appLogger.Infof("Cleaned up %d expired audit logs", deleted)
		}
	}); err != nil {
		appLogger.Errorf("Failed to schedule audit cleanup: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// 设置路由
	r := router.SetupRouter(auditService)

	// 启动服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s", cfg.Server.Port)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	if err := server.Close(); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
}
