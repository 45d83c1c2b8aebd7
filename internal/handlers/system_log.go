package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"adminhub/internal/services"
	"adminhub/pkg/config"
	"adminhub/pkg/jwt"
	"adminhub/pkg/logger"
	"adminhub/pkg/pagination"
	"adminhub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// SystemLogHandler 审计日志处理器
type SystemLogHandler struct {
	upgrader    websocket.Upgrader
	audit       *services.AuditService
	userService *services.UserService
	jwtManager  *jwt.JWTManager
	log         *logrus.Logger
}

func NewSystemLogHandler(audit *services.AuditService, userService *services.UserService) *SystemLogHandler {
	cfg := config.GetConfig()
	allowedOrigins := cfg.CORS.AllowOrigins

	return &SystemLogHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")

				// 同源请求Origin为空，放行
				if origin == "" {
					return true
				}

				for _, allowed := range allowedOrigins {
					if allowed == "*" || matchOrigin(origin, allowed) {
						return true
					}
				}

				logger.GetLogger().Warnf("WebSocket连接被拒绝，非法Origin: %s", origin)
				return false
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		audit:       audit,
		userService: userService,
		jwtManager:  jwt.GetJWTManager(),
		log:         logger.GetLogger(),
	}
}

// matchOrigin 支持 *.example.com 形式的通配
func matchOrigin(origin, pattern string) bool {
	if origin == pattern {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[1:] // ".example.com"
		return strings.HasSuffix(origin, suffix)
	}
	return false
}

// GetAll 分页查询审计日志
func (h *SystemLogHandler) GetAll(c *gin.Context) {
	pageParams := pagination.ParsePageParams(c)
	module := c.Query("module")
	action := c.Query("action")

	logs, total, err := h.audit.GetWithPage(tenantIDFromContext(c), module, action, pageParams.Page, pageParams.PageSize)
	if err != nil {
		response.ServerError(c, "查询失败")
		return
	}

	pageInfo := pagination.NewPageInfo(pageParams.Page, pageParams.PageSize, total)
	response.SuccessWithPage(c, logs, pageInfo)
}

// Tail 审计日志实时推送的WebSocket连接
//
// WebSocket不支持自定义header，token从查询参数取
func (h *SystemLogHandler) Tail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "缺少认证令牌"})
		return
	}

	claims, err := h.jwtManager.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的令牌"})
		return
	}

	hasPermission, err := h.userService.HasPermission(claims.UserID, "log:view")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "权限检查失败"})
		return
	}
	if !hasPermission {
		c.JSON(http.StatusForbidden, gin.H{"error": "权限不足：需要 log:view 权限"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	h.log.WithFields(logrus.Fields{
		"tenant_id": claims.TenantID,
		"user_id":   claims.UserID,
	}).Info("Audit log tail connection established")

	h.handleTailConnection(conn, claims.TenantID)
}

// handleTailConnection 轮询新日志并推送给客户端
func (h *SystemLogHandler) handleTailConnection(conn *websocket.Conn, tenantID uint) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.readPump(conn, cancel)

	const writeTimeout = 10 * time.Second
	const batchLimit = 100

	pollTicker := time.NewTicker(2 * time.Second)
	defer pollTicker.Stop()

	pingTicker := time.NewTicker(60 * time.Second)
	defer pingTicker.Stop()

	since := time.Now()

	for {
		select {
		case <-ctx.Done():
			return

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.WithError(err).Error("Failed to send ping")
				return
			}

		case <-pollTicker.C:
			entries, err := h.audit.GetSince(tenantID, since, batchLimit)
			if err != nil {
				h.log.WithError(err).Error("Failed to fetch audit entries")
				continue
			}

			for _, entry := range entries {
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteJSON(entry); err != nil {
					h.log.WithError(err).Error("Failed to send message to client")
					return
				}
				if entry.CreatedAt.After(since) {
					since = entry.CreatedAt
				}
			}
		}
	}
}

// readPump 消费客户端消息，连接断开时取消推送循环
func (h *SystemLogHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
