package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/rand"

	"shopnotify/internal/model"
	"shopnotify/internal/repository"
	"shopnotify/pkg/async"
	"shopnotify/pkg/logger"
)

const eventHistoryIDLength = 32

// FulfillmentBuilder 为每个 (订单, 事件) 预留积分和内容，生成执行记录
type FulfillmentBuilder struct {
	tx             repository.Transactor
	workspaces     repository.WorkspaceRepository
	histories      repository.EventHistoryRepository
	orderHistories repository.OrderHistoryRepository
	credits        *CreditService
	contents       *ContentAllocator
	logger         *logger.Logger
	concurrency    int
	now            func() time.Time
	newID          func() string
}

// NewFulfillmentBuilder 创建履约构建器
func NewFulfillmentBuilder(
	tx repository.Transactor,
	workspaces repository.WorkspaceRepository,
	histories repository.EventHistoryRepository,
	orderHistories repository.OrderHistoryRepository,
	credits *CreditService,
	contents *ContentAllocator,
	concurrency int,
	logger *logger.Logger,
) *FulfillmentBuilder {
	return &FulfillmentBuilder{
		tx:             tx,
		workspaces:     workspaces,
		histories:      histories,
		orderHistories: orderHistories,
		credits:        credits,
		contents:       contents,
		logger:         logger,
		concurrency:    concurrency,
		now:            func() time.Time { return time.Now().UTC() },
		newID:          func() string { return rand.String(eventHistoryIDLength) },
	}
}

// Build 逐个事件独立履约，返回 CONTENT_READY 与 FAILED 两组记录
// 基础设施错误只影响对应事件，汇总后返回
func (b *FulfillmentBuilder) Build(ctx context.Context, order *model.Order, workspaceID int64, events []model.Event) (ready, failed []*model.EventHistory, err error) {
	results := async.SettleAll(ctx, events, b.concurrency, func(ctx context.Context, ev model.Event) (*model.EventHistory, error) {
		return b.fulfill(ctx, order, workspaceID, ev)
	})

	var errs []error
	for _, res := range results {
		if !res.OK() {
			b.logger.Error("事件履约失败",
				"order_id", order.OrderID,
				"product_order_id", order.ProductOrderID,
				"event_id", events[res.Index].ID,
				"error", res.Err)
			errs = append(errs, fmt.Errorf("event %d: %w", events[res.Index].ID, res.Err))
			continue
		}
		if res.Value.Status == model.EventHistoryFailed {
			failed = append(failed, res.Value)
		} else {
			ready = append(ready, res.Value)
		}
	}

	b.logger.Info("事件履约完成",
		"order_id", order.OrderID,
		"ready", len(ready),
		"failed", len(failed),
		"errors", len(errs))
	return ready, failed, errors.Join(errs...)
}

func (b *FulfillmentBuilder) fulfill(ctx context.Context, order *model.Order, workspaceID int64, ev model.Event) (*model.EventHistory, error) {
	history := &model.EventHistory{
		ID:      b.newID(),
		EventID: ev.ID,
		OrderID: order.ID,
		Status:  model.EventHistoryContentReady,
	}

	err := b.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := b.reserve(ctx, order, workspaceID, ev, history); err != nil {
			return err
		}
		return b.record(ctx, history)
	})
	if err == nil {
		return history, nil
	}
	if !isFulfillmentFailure(err) {
		return nil, err
	}

	failed := &model.EventHistory{
		ID:      history.ID,
		EventID: ev.ID,
		OrderID: order.ID,
		Status:  model.EventHistoryFailed,
		Message: err.Error(),
	}
	if werr := b.tx.WithTx(ctx, func(ctx context.Context) error {
		return b.record(ctx, failed)
	}); werr != nil {
		return nil, fmt.Errorf("记录失败结果出错: %w", werr)
	}
	b.logger.Warn("事件履约未成功",
		"order_id", order.OrderID,
		"event_id", ev.ID,
		"event_history_id", failed.ID,
		"reason", failed.Message)
	return failed, nil
}

// reserve 在当前事务内完成订阅检查、内容分配和积分扣减
func (b *FulfillmentBuilder) reserve(ctx context.Context, order *model.Order, workspaceID int64, ev model.Event, history *model.EventHistory) error {
	sub, err := b.workspaces.FindActiveSubscription(ctx, workspaceID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNoSubscription
	}
	if err != nil {
		return fmt.Errorf("查询订阅失败: %w", err)
	}

	reason := fmt.Sprintf("event:%d order:%s/%s", ev.ID, order.OrderID, order.ProductOrderID)

	if group := ev.ContentGroup; group != nil {
		content, err := b.contents.Allocate(ctx, group)
		if err != nil {
			return err
		}
		credit, err := b.credits.Use(ctx, workspaceID, sub.Plan.ContentCredit+sub.Plan.AlimTalkCredit, reason)
		if err != nil {
			return err
		}
		history.WorkspaceCreditID = sql.NullInt64{Int64: credit.ID, Valid: true}
		history.ContentID = sql.NullInt64{Int64: content.ID, Valid: true}
		history.DownloadLimit = group.DownloadLimit
		if group.ExpireMinute.Valid {
			history.ExpiredAt = sql.NullTime{
				Time:  b.now().Add(time.Duration(group.ExpireMinute.Int64) * time.Minute),
				Valid: true,
			}
		}
		return nil
	}

	if order.ReceiverPhone == "" {
		return ErrReceiverPhoneMissing
	}
	credit, err := b.credits.Use(ctx, workspaceID, sub.Plan.AlimTalkCredit, reason)
	if err != nil {
		return err
	}
	history.WorkspaceCreditID = sql.NullInt64{Int64: credit.ID, Valid: true}
	return nil
}

// record 写入执行记录及对应的 EVENT 订单历史
func (b *FulfillmentBuilder) record(ctx context.Context, history *model.EventHistory) error {
	if err := b.histories.Insert(ctx, history); err != nil {
		return fmt.Errorf("写入事件记录失败: %w", err)
	}
	err := b.orderHistories.Insert(ctx, &model.OrderHistory{
		OrderID:        history.OrderID,
		Type:           model.OrderHistoryEvent,
		EventHistoryID: sql.NullString{String: history.ID, Valid: true},
	})
	if err != nil {
		return fmt.Errorf("写入订单历史失败: %w", err)
	}
	return nil
}
