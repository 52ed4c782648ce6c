package apis

import (
	"github.com/gin-gonic/gin"

	"shopnotify/internal/api/handler"
)

// RegisterWebhookRoutes 注册外部平台回调路由
func RegisterWebhookRoutes(router *gin.RouterGroup, webhookHandler *handler.WebhookHandler) {
	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/message-status", webhookHandler.MessageStatus)
		webhooks.POST("/template-review", webhookHandler.TemplateReview)
	}
}
