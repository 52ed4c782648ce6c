package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"shopnotify/internal/model"
)

// MessageRepository 消息模板仓库接口
type MessageRepository interface {
	// UpdateReviewStatus 按模板代码更新审核状态，返回受影响行数
	UpdateReviewStatus(ctx context.Context, templateCode string, status model.ReviewStatus) (int64, error)
}

type messageRepository struct {
	base
}

// NewMessageRepository 创建消息模板仓库实例
func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{base{db: db}}
}

func (r *messageRepository) UpdateReviewStatus(ctx context.Context, templateCode string, status model.ReviewStatus) (int64, error) {
	res, err := r.exec(ctx, `UPDATE messages SET review_status = ? WHERE template_code = ?`, status, templateCode)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
