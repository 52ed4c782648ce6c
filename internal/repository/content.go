package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"shopnotify/internal/model"
)

// ContentRepository 内容仓库接口
type ContentRepository interface {
	// ClaimUnused 锁定组内 id 最小的未使用内容，跳过已被其他事务锁定的行
	ClaimUnused(ctx context.Context, groupID int64) (*model.Content, error)
	// ClaimAny 锁定组内任意未删除的内容，用于可重复发放的内容组
	ClaimAny(ctx context.Context, groupID int64) (*model.Content, error)
	MarkUsed(ctx context.Context, id int64) error
	Release(ctx context.Context, ids []int64) error
	GetByID(ctx context.Context, id int64) (*model.Content, error)
}

type contentRepository struct {
	base
}

// NewContentRepository 创建内容仓库实例
func NewContentRepository(db *sqlx.DB) ContentRepository {
	return &contentRepository{base{db: db}}
}

func (r *contentRepository) ClaimUnused(ctx context.Context, groupID int64) (*model.Content, error) {
	var content model.Content
	query := `SELECT * FROM contents
		WHERE content_group_id = ? AND used = 0 AND deleted_at IS NULL
		ORDER BY id ASC LIMIT 1
		FOR UPDATE SKIP LOCKED`
	if err := r.get(ctx, &content, query, groupID); err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *contentRepository) ClaimAny(ctx context.Context, groupID int64) (*model.Content, error) {
	var content model.Content
	query := `SELECT * FROM contents
		WHERE content_group_id = ? AND deleted_at IS NULL
		ORDER BY used ASC, id ASC LIMIT 1
		FOR SHARE`
	if err := r.get(ctx, &content, query, groupID); err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *contentRepository) MarkUsed(ctx context.Context, id int64) error {
	_, err := r.exec(ctx, `UPDATE contents SET used = 1 WHERE id = ?`, id)
	return err
}

func (r *contentRepository) Release(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE contents SET used = 0 WHERE id IN (?)`, ids)
	if err != nil {
		return err
	}
	_, err = r.exec(ctx, query, args...)
	return err
}

func (r *contentRepository) GetByID(ctx context.Context, id int64) (*model.Content, error) {
	var content model.Content
	if err := r.get(ctx, &content, `SELECT * FROM contents WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &content, nil
}
