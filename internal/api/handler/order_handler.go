package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"shopnotify/internal/constants"
	"shopnotify/internal/service"
	"shopnotify/pkg/async"
	"shopnotify/pkg/logger"
)

// OrderReconciler 订单批量对账
type OrderReconciler interface {
	ReconcileBatch(ctx context.Context, records []service.OrderRecord) []async.Result[*service.OrderResult]
}

// OrderPipeline 对账结果的后续处理
type OrderPipeline interface {
	Process(ctx context.Context, results []*service.OrderResult) service.PipelineSummary
}

// OrderHandler 订单处理器
type OrderHandler struct {
	reconciler OrderReconciler
	pipeline   OrderPipeline
	logger     *logger.Logger
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(reconciler OrderReconciler, pipeline OrderPipeline, logger *logger.Logger) *OrderHandler {
	return &OrderHandler{
		reconciler: reconciler,
		pipeline:   pipeline,
		logger:     logger,
	}
}

// BatchItemResponse 批次中单个订单的处理结果
type BatchItemResponse struct {
	Index  int                  `json:"index"`
	OK     bool                 `json:"ok"`
	Error  string               `json:"error,omitempty"`
	Result *service.OrderResult `json:"result,omitempty"`
}

// BatchOrders 批量对账订单并触发事件
func (h *OrderHandler) BatchOrders(c *gin.Context) {
	var records []service.OrderRecord
	if err := c.ShouldBindJSON(&records); err != nil {
		respondError(c, http.StatusBadRequest, constants.ErrInvalidRequest)
		return
	}
	if len(records) == 0 {
		respondError(c, http.StatusBadRequest, constants.ErrEmptyBatch)
		return
	}

	ctx := c.Request.Context()
	results := h.reconciler.ReconcileBatch(ctx, records)

	items := make([]BatchItemResponse, len(results))
	var settled []*service.OrderResult
	for i, res := range results {
		items[i] = BatchItemResponse{Index: res.Index, OK: res.OK()}
		if !res.OK() {
			items[i].Error = res.Err.Error()
			continue
		}
		items[i].Result = res.Value
		settled = append(settled, res.Value)
	}

	summary := h.pipeline.Process(ctx, settled)
	h.logger.Info("订单批次处理完成",
		"total", len(records),
		"settled", len(settled),
		"dispatched", summary.Dispatched,
		"failed", summary.Failed,
	)

	respondOK(c, http.StatusOK, constants.SuccessUpdate, gin.H{
		"items":   items,
		"summary": summary,
	})
}
