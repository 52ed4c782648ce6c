package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"shopnotify/internal/model"
)

// ProductRepository 商品仓库接口
type ProductRepository interface {
	// Upsert 按 (product_id, store_id) 写入商品，已删除的会被恢复
	Upsert(ctx context.Context, product *model.Product) error
	// UpsertVariant 按 (variant_id, product_id) 写入规格，已删除的会被恢复
	UpsertVariant(ctx context.Context, variant *model.ProductVariant) error
	GetByID(ctx context.Context, id int64) (*model.Product, error)
	GetVariantByID(ctx context.Context, id int64) (*model.ProductVariant, error)
}

type productRepository struct {
	base
}

// NewProductRepository 创建商品仓库实例
func NewProductRepository(db *sqlx.DB) ProductRepository {
	return &productRepository{base{db: db}}
}

func (r *productRepository) Upsert(ctx context.Context, product *model.Product) error {
	query := `
		INSERT INTO products (workspace_id, store_id, product_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON DUPLICATE KEY UPDATE
			id = LAST_INSERT_ID(id),
			deleted_at = NULL,
			updated_at = CURRENT_TIMESTAMP
	`
	res, err := r.exec(ctx, query, product.WorkspaceID, product.StoreID, product.ProductID, product.Name)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	product.ID = id
	return nil
}

func (r *productRepository) UpsertVariant(ctx context.Context, variant *model.ProductVariant) error {
	query := `
		INSERT INTO product_variants (product_id, variant_id, name, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON DUPLICATE KEY UPDATE
			id = LAST_INSERT_ID(id),
			deleted_at = NULL,
			updated_at = CURRENT_TIMESTAMP
	`
	res, err := r.exec(ctx, query, variant.ProductID, variant.VariantID, variant.Name)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	variant.ID = id
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	if err := r.get(ctx, &product, `SELECT * FROM products WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) GetVariantByID(ctx context.Context, id int64) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	if err := r.get(ctx, &variant, `SELECT * FROM product_variants WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &variant, nil
}
