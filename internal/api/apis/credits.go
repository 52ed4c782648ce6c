package apis

import (
	"github.com/gin-gonic/gin"

	"shopnotify/internal/api/handler"
)

// RegisterCreditRoutes 注册工作区积分路由
func RegisterCreditRoutes(router *gin.RouterGroup, creditHandler *handler.CreditHandler) {
	credits := router.Group("/workspaces/:id/credits")
	{
		credits.POST("", creditHandler.GrantCredit)
		credits.GET("/balance", creditHandler.GetBalance)
	}
}
