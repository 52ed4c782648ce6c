package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopnotify/config"
	"shopnotify/internal/api"
	"shopnotify/internal/scheduler"
	"shopnotify/pkg/async"
	"shopnotify/pkg/database"
	"shopnotify/pkg/logger"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 初始化日志
	logger := logger.NewLoggerWithConfig(cfg.LogLevel, cfg.LogFile)
	defer logger.Sync()

	// 初始化数据库连接
	db, err := database.NewMySQLConnection(cfg.Database)
	if err != nil {
		logger.Fatal("无法链接到数据库", "error", err)
	}
	defer db.Close()

	// 初始化Redis连接
	redisClient, err := database.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("无法链接到Redis", "error", err)
	}
	defer redisClient.Close()

	// 创建异步工作器
	worker := async.NewWorker(cfg.Worker.QueueSize, logger)
	worker.Start(cfg.Worker.Workers)

	// 初始化API路由
	router, delivery := api.SetupRouter(cfg, logger, db, redisClient, worker)

	// 发货完成重试调度
	deliveryScheduler := scheduler.NewDeliveryScheduler(delivery, time.Duration(cfg.Delivery.RetryIntervalMinutes)*time.Minute, logger)
	deliveryScheduler.Start()

	// 创建HTTP服务器
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.APIPort),
		Handler: router,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info(fmt.Sprintf("服务器启动于端口: %d", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("启动服务器失败", "error", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("服务器被强制关闭", "error", err)
	}

	// 先停止调度，再等待队列中的回调处理完毕
	deliveryScheduler.Stop()
	worker.Stop()

	logger.Info("服务器已正常退出")
}
