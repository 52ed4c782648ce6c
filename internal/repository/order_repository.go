package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"shopnotify/internal/model"
)

// OrderRepository 订单仓库接口
type OrderRepository interface {
	// GetForUpdate 读取并锁定 (order_id, product_order_id, store_id) 对应的订单
	GetForUpdate(ctx context.Context, storeID int64, orderID, productOrderID string) (*model.Order, error)
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	// Upsert 按复合键写入订单并回填 ID
	Upsert(ctx context.Context, order *model.Order) error
}

type orderRepository struct {
	base
}

// NewOrderRepository 创建订单仓库实例
func NewOrderRepository(db *sqlx.DB) OrderRepository {
	return &orderRepository{base{db: db}}
}

func (r *orderRepository) GetForUpdate(ctx context.Context, storeID int64, orderID, productOrderID string) (*model.Order, error) {
	var order model.Order
	query := `SELECT * FROM orders WHERE order_id = ? AND product_order_id = ? AND store_id = ? FOR UPDATE`
	if err := r.get(ctx, &order, query, orderID, productOrderID, storeID); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	if err := r.get(ctx, &order, `SELECT * FROM orders WHERE id = ? AND deleted_at IS NULL`, id); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Upsert(ctx context.Context, order *model.Order) error {
	query := `
		INSERT INTO orders (
			store_id, order_id, product_order_id, product_id, product_variant_id, status,
			orderer_name, orderer_phone, receiver_name, receiver_phone, price, quantity, order_at,
			delivery_address, delivery_message, delivery_company, delivery_tracking_number,
			created_at, updated_at
		) VALUES (
			:store_id, :order_id, :product_order_id, :product_id, :product_variant_id, :status,
			:orderer_name, :orderer_phone, :receiver_name, :receiver_phone, :price, :quantity, :order_at,
			:delivery_address, :delivery_message, :delivery_company, :delivery_tracking_number,
			:created_at, :updated_at
		)
		ON DUPLICATE KEY UPDATE
			id = LAST_INSERT_ID(id),
			product_id = VALUES(product_id),
			product_variant_id = VALUES(product_variant_id),
			status = VALUES(status),
			orderer_name = VALUES(orderer_name),
			orderer_phone = VALUES(orderer_phone),
			receiver_name = VALUES(receiver_name),
			receiver_phone = VALUES(receiver_phone),
			price = VALUES(price),
			quantity = VALUES(quantity),
			order_at = VALUES(order_at),
			delivery_address = VALUES(delivery_address),
			delivery_message = VALUES(delivery_message),
			delivery_company = VALUES(delivery_company),
			delivery_tracking_number = VALUES(delivery_tracking_number),
			deleted_at = NULL,
			updated_at = VALUES(updated_at)
	`
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	res, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, order)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	order.ID = id
	return nil
}

// OrderHistoryRepository 订单历史仓库接口
type OrderHistoryRepository interface {
	Insert(ctx context.Context, history *model.OrderHistory) error
	// InsertBatch 批量写入，空切片直接返回
	InsertBatch(ctx context.Context, histories []model.OrderHistory) error
}

type orderHistoryRepository struct {
	base
}

// NewOrderHistoryRepository 创建订单历史仓库实例
func NewOrderHistoryRepository(db *sqlx.DB) OrderHistoryRepository {
	return &orderHistoryRepository{base{db: db}}
}

const insertOrderHistory = `INSERT INTO order_histories (order_id, type, status, event_history_id, created_at)
	VALUES (:order_id, :type, :status, :event_history_id, :created_at)`

func (r *orderHistoryRepository) Insert(ctx context.Context, history *model.OrderHistory) error {
	if history.CreatedAt.IsZero() {
		history.CreatedAt = time.Now().UTC()
	}
	res, err := sqlx.NamedExecContext(ctx, r.ext(ctx), insertOrderHistory, history)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	history.ID = id
	return nil
}

func (r *orderHistoryRepository) InsertBatch(ctx context.Context, histories []model.OrderHistory) error {
	if len(histories) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range histories {
		if histories[i].CreatedAt.IsZero() {
			histories[i].CreatedAt = now
		}
	}
	_, err := sqlx.NamedExecContext(ctx, r.ext(ctx), insertOrderHistory, histories)
	return err
}
