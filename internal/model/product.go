package model

import (
	"database/sql"
	"time"
)

// Product 店铺商品缓存，(product_id, store_id) 唯一
type Product struct {
	ID          int64        `db:"id" json:"id"`
	WorkspaceID int64        `db:"workspace_id" json:"workspace_id"`
	StoreID     int64        `db:"store_id" json:"store_id"`
	ProductID   string       `db:"product_id" json:"product_id"`
	Name        string       `db:"name" json:"name"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
	DeletedAt   sql.NullTime `db:"deleted_at" json:"deleted_at,omitempty"`
}

// ProductVariant 商品规格缓存，(variant_id, product_id) 唯一
type ProductVariant struct {
	ID        int64        `db:"id" json:"id"`
	ProductID int64        `db:"product_id" json:"product_id"`
	VariantID string       `db:"variant_id" json:"variant_id"`
	Name      string       `db:"name" json:"name"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
	DeletedAt sql.NullTime `db:"deleted_at" json:"deleted_at,omitempty"`
}
