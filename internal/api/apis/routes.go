package apis

import (
	"github.com/gin-gonic/gin"

	"shopnotify/internal/api/handler"
)

// RegisterRoutes 注册所有API路由
func RegisterRoutes(v1 *gin.RouterGroup, orderHandler *handler.OrderHandler, webhookHandler *handler.WebhookHandler, creditHandler *handler.CreditHandler) {
	RegisterOrderRoutes(v1, orderHandler)
	RegisterWebhookRoutes(v1, webhookHandler)
	RegisterCreditRoutes(v1, creditHandler)
}
