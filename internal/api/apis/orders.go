package apis

import (
	"github.com/gin-gonic/gin"

	"shopnotify/internal/api/handler"
)

// RegisterOrderRoutes 注册订单相关路由
func RegisterOrderRoutes(router *gin.RouterGroup, orderHandler *handler.OrderHandler) {
	orders := router.Group("/orders")
	{
		// 外部调度器定时推送的订单批次
		orders.POST("/batch", orderHandler.BatchOrders)
	}
}
