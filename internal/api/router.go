package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"shopnotify/config"
	"shopnotify/internal/api/apis"
	"shopnotify/internal/api/handler"
	"shopnotify/internal/middleware"
	"shopnotify/internal/provider"
	"shopnotify/internal/repository"
	"shopnotify/internal/service"
	"shopnotify/pkg/async"
	"shopnotify/pkg/email"
	"shopnotify/pkg/lock"
	"shopnotify/pkg/logger"
)

// SetupRouter 设置API路由，同时返回供定时任务使用的投递对账服务
func SetupRouter(cfg *config.Config, logger *logger.Logger, db *sqlx.DB, redisClient *redis.Client, worker *async.Worker) (*gin.Engine, *service.DeliveryReconciler) {
	// 创建Gin引擎
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// 使用中间件
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))

	// 初始化存储库
	tx := repository.NewTransactor(db)
	storeRepo := repository.NewStoreRepository(db)
	workspaceRepo := repository.NewWorkspaceRepository(db)
	creditRepo := repository.NewCreditRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	orderHistoryRepo := repository.NewOrderHistoryRepository(db)
	eventRepo := repository.NewEventRepository(db)
	eventHistoryRepo := repository.NewEventHistoryRepository(db)
	contentRepo := repository.NewContentRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	// 初始化邮件服务
	emailService := email.NewService(email.Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
		FromName: cfg.Email.FromName,
	}, logger)

	// 外部平台客户端
	locker := lock.NewKeyLocker(redisClient, time.Duration(cfg.Worker.OrderLockTTL)*time.Second)
	commerceClient := provider.NewLoggingCommerceClient(logger)
	dispatcher := provider.NewLoggingDispatcher(logger)

	// 初始化服务
	concurrency := cfg.Worker.BatchConcurrency
	creditService := service.NewCreditService(tx, workspaceRepo, creditRepo, logger)
	contentAllocator := service.NewContentAllocator(contentRepo)
	resolver := service.NewEventResolver(eventRepo)
	reconciler := service.NewOrderReconciler(tx, storeRepo, productRepo, orderRepo, orderHistoryRepo, resolver, locker, concurrency, logger)
	builder := service.NewFulfillmentBuilder(tx, workspaceRepo, eventHistoryRepo, orderHistoryRepo, creditService, contentAllocator, concurrency, logger)
	renderer := service.NewMessageRenderer(eventRepo, orderRepo, storeRepo, productRepo, contentRepo, eventHistoryRepo, cfg.Delivery.ContentBaseURL, concurrency, logger)
	pipeline := service.NewPipeline(tx, builder, renderer, dispatcher, eventHistoryRepo, contentAllocator, logger)
	delivery := service.NewDeliveryReconciler(tx, eventHistoryRepo, eventRepo, orderRepo, storeRepo, workspaceRepo, contentAllocator,
		commerceClient, emailService, redisClient, cfg.Delivery.AuthFailureLimit, concurrency, logger)
	templateReviews := service.NewTemplateReviewService(messageRepo, logger)

	// 初始化处理器
	orderHandler := handler.NewOrderHandler(reconciler, pipeline, logger)
	webhookHandler := handler.NewWebhookHandler(delivery, templateReviews, worker, logger)
	creditHandler := handler.NewCreditHandler(creditService, logger)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API版本v1
	v1 := router.Group("/api/v1")
	apis.RegisterRoutes(v1, orderHandler, webhookHandler, creditHandler)

	return router, delivery
}
