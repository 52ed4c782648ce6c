package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"shopnotify/internal/model"
)

// StoreRepository 店铺仓库接口
type StoreRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Store, error)
	Disable(ctx context.Context, id int64) error
}

type storeRepository struct {
	base
}

// NewStoreRepository 创建店铺仓库实例
func NewStoreRepository(db *sqlx.DB) StoreRepository {
	return &storeRepository{base{db: db}}
}

// GetByID 获取未删除的店铺
func (r *storeRepository) GetByID(ctx context.Context, id int64) (*model.Store, error) {
	var store model.Store
	query := `SELECT * FROM stores WHERE id = ? AND deleted_at IS NULL`
	if err := r.get(ctx, &store, query, id); err != nil {
		return nil, err
	}
	return &store, nil
}

// Disable 停用店铺对接
func (r *storeRepository) Disable(ctx context.Context, id int64) error {
	_, err := r.exec(ctx, `UPDATE stores SET enabled = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}
