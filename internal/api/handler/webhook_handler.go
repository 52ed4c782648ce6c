package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shopnotify/internal/constants"
	"shopnotify/internal/service"
	"shopnotify/pkg/async"
	"shopnotify/pkg/logger"
)

// DeliveryCallbackHandler 投递状态回调处理
type DeliveryCallbackHandler interface {
	HandleCallbacks(ctx context.Context, callbacks []service.DeliveryCallback) []async.Result[*service.CallbackOutcome]
}

// TemplateReviewer 模板审核结果处理
type TemplateReviewer interface {
	Apply(ctx context.Context, title string) (service.TemplateReview, error)
}

// TaskSubmitter 异步任务提交
type TaskSubmitter interface {
	Submit(task async.Task) (string, error)
}

// WebhookHandler 外部平台回调处理器
type WebhookHandler struct {
	delivery DeliveryCallbackHandler
	reviews  TemplateReviewer
	worker   TaskSubmitter
	logger   *logger.Logger
}

// NewWebhookHandler 创建回调处理器
func NewWebhookHandler(delivery DeliveryCallbackHandler, reviews TemplateReviewer, worker TaskSubmitter, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		delivery: delivery,
		reviews:  reviews,
		worker:   worker,
		logger:   logger,
	}
}

// MessageStatus 接收投递状态回调，交由异步工作器处理
func (h *WebhookHandler) MessageStatus(c *gin.Context) {
	var callbacks []service.DeliveryCallback
	if err := c.ShouldBindJSON(&callbacks); err != nil {
		respondError(c, http.StatusBadRequest, constants.ErrInvalidRequest)
		return
	}
	if len(callbacks) == 0 {
		respondError(c, http.StatusBadRequest, constants.ErrEmptyBatch)
		return
	}

	taskID, err := h.worker.Submit(async.Task{
		Name:    "delivery-callbacks",
		Timeout: time.Minute,
		// 单条失败由 HandleCallbacks 记录，整批不重试
		Handler: func(ctx context.Context) error {
			h.delivery.HandleCallbacks(ctx, callbacks)
			return nil
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, async.ErrQueueFull):
			h.logger.Warn("投递回调任务队列已满", "count", len(callbacks))
			respondError(c, http.StatusServiceUnavailable, constants.ErrQueueFull)
			return
		case errors.Is(err, async.ErrWorkerStopped):
			respondError(c, http.StatusServiceUnavailable, constants.ErrWorkerStopped)
			return
		}
		h.logger.Error("提交投递回调任务失败", "error", err)
		respondError(c, http.StatusInternalServerError, constants.ErrInternalServer)
		return
	}

	respondOK(c, http.StatusAccepted, constants.SuccessAccepted, gin.H{
		"taskId": taskID,
		"count":  len(callbacks),
	})
}

type templateReviewRequest struct {
	Title string `json:"title" binding:"required"`
}

// TemplateReview 接收模板审核结果通知
func (h *WebhookHandler) TemplateReview(c *gin.Context) {
	var req templateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, constants.ErrInvalidRequest)
		return
	}

	review, err := h.reviews.Apply(c.Request.Context(), req.Title)
	if err != nil {
		if !errors.Is(err, service.ErrTemplateTitleUnparsed) {
			h.logger.Error("处理模板审核结果失败", "title", req.Title, "error", err)
		}
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, constants.SuccessUpdate, review)
}
