package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"shopnotify/internal/model"
	"shopnotify/internal/repository"
	"shopnotify/pkg/async"
	"shopnotify/pkg/logger"
)

// OrderRecord 外部平台推送的原始订单
type OrderRecord struct {
	StoreID                int64             `json:"storeId"`
	OrderID                string            `json:"orderId"`
	ProductOrderID         string            `json:"productOrderId"`
	ProductID              string            `json:"productId"`
	ProductName            string            `json:"productName"`
	VariantID              string            `json:"variantId,omitempty"`
	VariantName            string            `json:"variantName,omitempty"`
	Status                 model.OrderStatus `json:"status"`
	OrdererName            string            `json:"ordererName"`
	OrdererPhone           string            `json:"ordererPhone"`
	ReceiverName           string            `json:"receiverName"`
	ReceiverPhone          string            `json:"receiverPhone"`
	Price                  decimal.Decimal   `json:"price"`
	Quantity               int               `json:"quantity"`
	OrderAt                time.Time         `json:"orderAt"`
	DeliveryAddress        string            `json:"deliveryAddress"`
	DeliveryMessage        string            `json:"deliveryMessage"`
	DeliveryCompany        string            `json:"deliveryCompany"`
	DeliveryTrackingNumber string            `json:"deliveryTrackingNumber"`
}

// Validate 校验必填字段
func (r OrderRecord) Validate() error {
	switch {
	case r.StoreID <= 0:
		return &ValidationError{Field: "storeId"}
	case r.OrderID == "":
		return &ValidationError{Field: "orderId"}
	case r.ProductOrderID == "":
		return &ValidationError{Field: "productOrderId"}
	case r.ProductID == "":
		return &ValidationError{Field: "productId"}
	case !r.Status.Valid():
		return &ValidationError{Field: "status"}
	}
	return nil
}

func (r OrderRecord) lockKey() string {
	return fmt.Sprintf("order:%d:%s:%s", r.StoreID, r.OrderID, r.ProductOrderID)
}

// OrderResult 单个订单的对账结果
type OrderResult struct {
	Order           *model.Order      `json:"order"`
	WorkspaceID     int64             `json:"workspaceId"`
	PreviousStatus  model.OrderStatus `json:"previousStatus,omitempty"`
	Events          []model.Event     `json:"events"`
	IsStatusChanged bool              `json:"isStatusChanged"`
}

// OrderReconciler 订单对账服务
type OrderReconciler struct {
	tx             repository.Transactor
	stores         repository.StoreRepository
	products       repository.ProductRepository
	orders         repository.OrderRepository
	orderHistories repository.OrderHistoryRepository
	resolver       *EventResolver
	locker         Locker
	concurrency    int
	logger         *logger.Logger
}

// NewOrderReconciler 创建订单对账服务
func NewOrderReconciler(
	tx repository.Transactor,
	stores repository.StoreRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	orderHistories repository.OrderHistoryRepository,
	resolver *EventResolver,
	locker Locker,
	concurrency int,
	logger *logger.Logger,
) *OrderReconciler {
	return &OrderReconciler{
		tx:             tx,
		stores:         stores,
		products:       products,
		orders:         orders,
		orderHistories: orderHistories,
		resolver:       resolver,
		locker:         locker,
		concurrency:    concurrency,
		logger:         logger,
	}
}

// ReconcileBatch 逐条写入订单并检测状态变化，单条失败不影响其他订单
// 结果与输入一一对应
func (s *OrderReconciler) ReconcileBatch(ctx context.Context, records []OrderRecord) []async.Result[*OrderResult] {
	results := async.SettleAll(ctx, records, s.concurrency, s.reconcileOne)

	var changes []model.OrderHistory
	failed := 0
	for _, res := range results {
		if !res.OK() {
			failed++
			rec := records[res.Index]
			s.logger.Error("订单对账失败",
				"store_id", rec.StoreID,
				"order_id", rec.OrderID,
				"product_order_id", rec.ProductOrderID,
				"error", res.Err)
			continue
		}
		if res.Value.IsStatusChanged {
			changes = append(changes, model.OrderHistory{
				OrderID: res.Value.Order.ID,
				Type:    model.OrderHistoryStatusChange,
				Status:  sql.NullString{String: string(res.Value.Order.Status), Valid: true},
			})
		}
	}

	if err := s.orderHistories.InsertBatch(ctx, changes); err != nil {
		s.logger.Error("写入订单状态历史失败", "count", len(changes), "error", err)
	}

	s.logger.Info("订单批次对账完成",
		"total", len(records),
		"succeeded", len(records)-failed,
		"failed", failed,
		"status_changed", len(changes))
	return results
}

func (s *OrderReconciler) reconcileOne(ctx context.Context, rec OrderRecord) (*OrderResult, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, rec.lockKey())
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *OrderResult
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		store, err := s.stores.GetByID(ctx, rec.StoreID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrStoreNotFound
		}
		if err != nil {
			return fmt.Errorf("获取店铺失败: %w", err)
		}

		product := &model.Product{
			WorkspaceID: store.WorkspaceID,
			StoreID:     store.ID,
			ProductID:   rec.ProductID,
			Name:        rec.ProductName,
		}
		if err := s.products.Upsert(ctx, product); err != nil {
			return fmt.Errorf("写入商品失败: %w", err)
		}

		var variantID sql.NullInt64
		if rec.VariantID != "" {
			variant := &model.ProductVariant{
				ProductID: product.ID,
				VariantID: rec.VariantID,
				Name:      rec.VariantName,
			}
			if err := s.products.UpsertVariant(ctx, variant); err != nil {
				return fmt.Errorf("写入商品规格失败: %w", err)
			}
			variantID = sql.NullInt64{Int64: variant.ID, Valid: true}
		}

		previous, err := s.orders.GetForUpdate(ctx, store.ID, rec.OrderID, rec.ProductOrderID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("获取原订单失败: %w", err)
		}

		order := rec.toOrder(product.ID, variantID)
		if previous != nil {
			order.CreatedAt = previous.CreatedAt
		}
		if err := s.orders.Upsert(ctx, order); err != nil {
			return fmt.Errorf("写入订单失败: %w", err)
		}

		result = &OrderResult{Order: order, WorkspaceID: store.WorkspaceID}
		if previous != nil {
			result.PreviousStatus = previous.Status
			if previous.Status == order.Status {
				return nil
			}
			result.IsStatusChanged = true
		}

		result.Events, err = s.resolver.FindEvents(ctx, store.WorkspaceID, product.ID, variantID, order.Status)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r OrderRecord) toOrder(productID int64, variantID sql.NullInt64) *model.Order {
	return &model.Order{
		StoreID:                r.StoreID,
		OrderID:                r.OrderID,
		ProductOrderID:         r.ProductOrderID,
		ProductID:              productID,
		ProductVariantID:       variantID,
		Status:                 r.Status,
		OrdererName:            r.OrdererName,
		OrdererPhone:           r.OrdererPhone,
		ReceiverName:           r.ReceiverName,
		ReceiverPhone:          r.ReceiverPhone,
		Price:                  r.Price,
		Quantity:               r.Quantity,
		OrderAt:                r.OrderAt.UTC(),
		DeliveryAddress:        r.DeliveryAddress,
		DeliveryMessage:        r.DeliveryMessage,
		DeliveryCompany:        r.DeliveryCompany,
		DeliveryTrackingNumber: r.DeliveryTrackingNumber,
	}
}
