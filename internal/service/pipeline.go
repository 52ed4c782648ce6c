package service

import (
	"context"
	"fmt"

	"shopnotify/internal/model"
	"shopnotify/internal/repository"
	"shopnotify/pkg/async"
	"shopnotify/pkg/logger"
)

// PipelineSummary 一次处理的汇总
type PipelineSummary struct {
	Orders     int `json:"orders"`
	Ready      int `json:"ready"`
	Failed     int `json:"failed"`
	Dispatched int `json:"dispatched"`
}

// Pipeline 串联履约、渲染和投递
type Pipeline struct {
	tx         repository.Transactor
	builder    *FulfillmentBuilder
	renderer   *MessageRenderer
	dispatcher MessageDispatcher
	histories  repository.EventHistoryRepository
	contents   *ContentAllocator
	logger     *logger.Logger
}

// NewPipeline 创建处理流水线
func NewPipeline(
	tx repository.Transactor,
	builder *FulfillmentBuilder,
	renderer *MessageRenderer,
	dispatcher MessageDispatcher,
	histories repository.EventHistoryRepository,
	contents *ContentAllocator,
	logger *logger.Logger,
) *Pipeline {
	return &Pipeline{
		tx:         tx,
		builder:    builder,
		renderer:   renderer,
		dispatcher: dispatcher,
		histories:  histories,
		contents:   contents,
		logger:     logger,
	}
}

// Process 对每个匹配到事件的订单执行履约、渲染和投递
func (p *Pipeline) Process(ctx context.Context, results []*OrderResult) PipelineSummary {
	var summary PipelineSummary
	var targets []*OrderResult
	for _, res := range results {
		if res != nil && len(res.Events) > 0 {
			targets = append(targets, res)
		}
	}
	summary.Orders = len(targets)

	for _, res := range targets {
		ready, failed, err := p.builder.Build(ctx, res.Order, res.WorkspaceID, res.Events)
		if err != nil {
			p.logger.Error("订单履约存在错误", "order_id", res.Order.OrderID, "error", err)
		}
		summary.Failed += len(failed)
		if len(ready) == 0 {
			continue
		}

		rendered := p.renderer.RenderBatch(ctx, ready)
		summary.Ready += len(rendered)
		sent := p.dispatch(ctx, rendered)
		summary.Dispatched += sent
		summary.Failed += len(rendered) - sent
	}

	p.logger.Info("订单处理完成",
		"orders", summary.Orders,
		"ready", summary.Ready,
		"dispatched", summary.Dispatched,
		"failed", summary.Failed)
	return summary
}

func (p *Pipeline) dispatch(ctx context.Context, rendered []RenderedHistory) int {
	results := async.SettleAll(ctx, rendered, 0, func(ctx context.Context, rh RenderedHistory) (struct{}, error) {
		err := p.dispatcher.Send(ctx, OutboundMessage{
			EventHistoryID: rh.History.ID,
			Receiver:       rh.Order.ReceiverPhone,
			TemplateCode:   rh.TemplateCode,
			Content:        rh.Message.Content,
			Variables:      rh.Message.Variables,
			Buttons:        rh.Message.Buttons,
		})
		if err == nil {
			return struct{}{}, nil
		}
		if cerr := p.compensate(ctx, rh.History, err); cerr != nil {
			return struct{}{}, fmt.Errorf("%w (补偿失败: %v)", err, cerr)
		}
		return struct{}{}, err
	})

	sent := 0
	for _, res := range results {
		if res.OK() {
			sent++
			continue
		}
		p.logger.Error("消息投递失败", "event_history_id", rendered[res.Index].History.ID, "error", res.Err)
	}
	return sent
}

// compensate 投递失败时标记失败并释放内容
func (p *Pipeline) compensate(ctx context.Context, history *model.EventHistory, cause error) error {
	return p.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := p.histories.MarkFailed(ctx, history.ID, cause.Error()); err != nil {
			return err
		}
		history.Status = model.EventHistoryFailed
		if history.ContentID.Valid {
			return p.contents.Release(ctx, []int64{history.ContentID.Int64})
		}
		return nil
	})
}
