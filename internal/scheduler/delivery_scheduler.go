package scheduler

import (
	"context"
	"sync"
	"time"

	"shopnotify/pkg/logger"
)

// CompletionRetrier 重试暂存的发货完成请求
type CompletionRetrier interface {
	RetryPendingCompletions(ctx context.Context) (int, error)
}

// DeliveryScheduler 发货完成重试调度器
type DeliveryScheduler struct {
	retrier  CompletionRetrier
	interval time.Duration
	timeout  time.Duration
	logger   *logger.Logger
	quit     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// NewDeliveryScheduler 创建发货完成重试调度器
func NewDeliveryScheduler(retrier CompletionRetrier, interval time.Duration, logger *logger.Logger) *DeliveryScheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &DeliveryScheduler{
		retrier:  retrier,
		interval: interval,
		timeout:  90 * time.Second,
		logger:   logger,
		quit:     make(chan struct{}),
	}
}

// Start 启动调度器
func (s *DeliveryScheduler) Start() {
	s.wg.Add(1)
	go s.retryScheduler()
	s.logger.Info("发货完成重试调度器启动", "interval", s.interval.String())
}

// Stop 停止调度器并等待当前任务结束
func (s *DeliveryScheduler) Stop() {
	s.once.Do(func() { close(s.quit) })
	s.wg.Wait()
	s.logger.Info("发货完成重试调度器停止")
}

func (s *DeliveryScheduler) retryScheduler() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.retryPending()
		case <-s.quit:
			return
		}
	}
}

// retryPending 执行一次重试
func (s *DeliveryScheduler) retryPending() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	done, err := s.retrier.RetryPendingCompletions(ctx)
	if err != nil {
		s.logger.Error("发货完成重试失败", "error", err)
		return
	}
	if done > 0 {
		s.logger.Info("发货完成重试完成", "stores", done)
	}
}
