package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopnotify/pkg/logger"
)

var (
	// ErrWorkerStopped 工作器已停止，不再接受任务
	ErrWorkerStopped = errors.New("async worker stopped")
	// ErrQueueFull 任务队列已满
	ErrQueueFull = errors.New("async worker queue full")
)

// Task 表示一个异步任务
type Task struct {
	ID       string
	Name     string
	Handler  func(ctx context.Context) error
	Timeout  time.Duration
	RetryMax int
}

// TaskResult 表示任务执行结果
type TaskResult struct {
	TaskID    string
	Completed bool
	Error     error
	StartTime time.Time
	EndTime   time.Time
}

// Worker 异步任务处理器
type Worker struct {
	taskQueue chan Task
	results   map[string]TaskResult
	mu        sync.RWMutex
	stateMu   sync.RWMutex // 保护 stopped，不与结果锁共用
	stopped   bool
	logger    *logger.Logger
	wg        sync.WaitGroup
	backoff   time.Duration
}

// NewWorker 创建一个新的工作器
func NewWorker(queueSize int, logger *logger.Logger) *Worker {
	return &Worker{
		taskQueue: make(chan Task, queueSize),
		results:   make(map[string]TaskResult),
		logger:    logger,
		backoff:   time.Second,
	}
}

// Start 启动工作器
func (w *Worker) Start(numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.processTask()
	}
}

// Stop 停止工作器，等待队列中的任务执行完毕
func (w *Worker) Stop() {
	w.stateMu.Lock()
	if w.stopped {
		w.stateMu.Unlock()
		return
	}
	w.stopped = true
	close(w.taskQueue)
	w.stateMu.Unlock()
	w.wg.Wait()
}

// Submit 将任务加入队列，返回任务ID，队列已满时立即返回 ErrQueueFull
func (w *Worker) Submit(task Task) (string, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	if w.stopped {
		return "", ErrWorkerStopped
	}
	select {
	case w.taskQueue <- task:
		return task.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// GetResult 获取任务结果
func (w *Worker) GetResult(taskID string) (TaskResult, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	result, exists := w.results[taskID]
	return result, exists
}

// processTask 处理任务的工作循环
func (w *Worker) processTask() {
	defer w.wg.Done()

	for task := range w.taskQueue {
		w.executeTask(task)
	}
}

// executeTask 执行单个任务
func (w *Worker) executeTask(task Task) {
	result := TaskResult{
		TaskID:    task.ID,
		StartTime: time.Now(),
	}

	w.logger.Info("Starting async task", "task_id", task.ID, "task", task.Name)

	ctx := context.Background()
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	// 执行任务，支持重试
	var err error
	for attempt := 0; attempt <= task.RetryMax; attempt++ {
		if attempt > 0 {
			w.logger.Info("Retrying task", "task_id", task.ID, "attempt", attempt)
			time.Sleep(w.backoff * time.Duration(attempt))
		}

		err = w.run(ctx, task)
		if err == nil {
			break
		}

		w.logger.Error("Task execution failed", "task_id", task.ID, "attempt", attempt, "error", err)
	}

	result.EndTime = time.Now()
	result.Error = err
	result.Completed = err == nil

	w.mu.Lock()
	w.results[task.ID] = result
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("Async task failed", "task_id", task.ID, "error", err)
	} else {
		w.logger.Info("Async task completed successfully", "task_id", task.ID, "duration", result.EndTime.Sub(result.StartTime))
	}
}

// run 执行任务处理函数，panic 转换为错误
func (w *Worker) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return task.Handler(ctx)
}
