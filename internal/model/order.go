package model

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPayWaiting          OrderStatus = "PAY_WAITING"
	OrderStatusPayed               OrderStatus = "PAYED"
	OrderStatusDeliveryReady       OrderStatus = "DELIVERY_READY"
	OrderStatusDelivering          OrderStatus = "DELIVERING"
	OrderStatusDelivered           OrderStatus = "DELIVERED"
	OrderStatusPurchaseDecided     OrderStatus = "PURCHASE_DECIDED"
	OrderStatusExchanged           OrderStatus = "EXCHANGED"
	OrderStatusCanceled            OrderStatus = "CANCELED"
	OrderStatusReturned            OrderStatus = "RETURNED"
	OrderStatusCanceledByNoPayment OrderStatus = "CANCELED_BY_NOPAYMENT"
)

// Valid 判断状态是否合法
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPayWaiting, OrderStatusPayed, OrderStatusDeliveryReady, OrderStatusDelivering,
		OrderStatusDelivered, OrderStatusPurchaseDecided, OrderStatusExchanged, OrderStatusCanceled,
		OrderStatusReturned, OrderStatusCanceledByNoPayment:
		return true
	}
	return false
}

// Order 订单，(order_id, product_order_id, store_id) 唯一
type Order struct {
	ID                     int64           `db:"id" json:"id"`
	StoreID                int64           `db:"store_id" json:"store_id"`
	OrderID                string          `db:"order_id" json:"order_id"`
	ProductOrderID         string          `db:"product_order_id" json:"product_order_id"`
	ProductID              int64           `db:"product_id" json:"product_id"`
	ProductVariantID       sql.NullInt64   `db:"product_variant_id" json:"product_variant_id,omitempty"`
	Status                 OrderStatus     `db:"status" json:"status"`
	OrdererName            string          `db:"orderer_name" json:"orderer_name"`
	OrdererPhone           string          `db:"orderer_phone" json:"orderer_phone"`
	ReceiverName           string          `db:"receiver_name" json:"receiver_name"`
	ReceiverPhone          string          `db:"receiver_phone" json:"receiver_phone"`
	Price                  decimal.Decimal `db:"price" json:"price"`
	Quantity               int             `db:"quantity" json:"quantity"`
	OrderAt                time.Time       `db:"order_at" json:"order_at"`
	DeliveryAddress        string          `db:"delivery_address" json:"delivery_address"`
	DeliveryMessage        string          `db:"delivery_message" json:"delivery_message"`
	DeliveryCompany        string          `db:"delivery_company" json:"delivery_company"`
	DeliveryTrackingNumber string          `db:"delivery_tracking_number" json:"delivery_tracking_number"`
	CreatedAt              time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time       `db:"updated_at" json:"updated_at"`
	DeletedAt              sql.NullTime    `db:"deleted_at" json:"deleted_at,omitempty"`
}

// OrderHistoryType 订单历史类型
type OrderHistoryType string

const (
	OrderHistoryStatusChange OrderHistoryType = "STATUS_CHANGE"
	OrderHistoryEvent        OrderHistoryType = "EVENT"
)

// OrderHistory 订单审计记录，只追加
type OrderHistory struct {
	ID             int64            `db:"id" json:"id"`
	OrderID        int64            `db:"order_id" json:"order_id"`
	Type           OrderHistoryType `db:"type" json:"type"`
	Status         sql.NullString   `db:"status" json:"status,omitempty"`
	EventHistoryID sql.NullString   `db:"event_history_id" json:"event_history_id,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}
