package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"shopnotify/internal/model"
)

// DeliveryUpdate 投递回调写入的字段
type DeliveryUpdate struct {
	Status             model.EventHistoryStatus
	ProviderStatusCode string
	ExternalMessageID  string
	Message            string
	ProcessedAt        time.Time
}

// EventHistoryRepository 事件执行记录仓库接口
type EventHistoryRepository interface {
	Insert(ctx context.Context, history *model.EventHistory) error
	GetByID(ctx context.Context, id string) (*model.EventHistory, error)
	GetForUpdate(ctx context.Context, id string) (*model.EventHistory, error)
	// SaveRendered 写入渲染结果并推进状态
	SaveRendered(ctx context.Context, id string, content string, vars model.Variables, status model.EventHistoryStatus) error
	UpdateDelivery(ctx context.Context, id string, update DeliveryUpdate) error
	MarkFailed(ctx context.Context, id string, message string) error
}

type eventHistoryRepository struct {
	base
}

// NewEventHistoryRepository 创建事件执行记录仓库实例
func NewEventHistoryRepository(db *sqlx.DB) EventHistoryRepository {
	return &eventHistoryRepository{base{db: db}}
}

func (r *eventHistoryRepository) Insert(ctx context.Context, history *model.EventHistory) error {
	query := `
		INSERT INTO event_histories (
			id, event_id, order_id, workspace_credit_id, content_id, status, message,
			expired_at, download_count, download_limit, disable_download, created_at, updated_at
		) VALUES (
			:id, :event_id, :order_id, :workspace_credit_id, :content_id, :status, :message,
			:expired_at, :download_count, :download_limit, :disable_download, :created_at, :updated_at
		)
	`
	now := time.Now().UTC()
	history.CreatedAt = now
	history.UpdatedAt = now
	_, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, history)
	return err
}

func (r *eventHistoryRepository) GetByID(ctx context.Context, id string) (*model.EventHistory, error) {
	var history model.EventHistory
	if err := r.get(ctx, &history, `SELECT * FROM event_histories WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &history, nil
}

func (r *eventHistoryRepository) GetForUpdate(ctx context.Context, id string) (*model.EventHistory, error) {
	var history model.EventHistory
	if err := r.get(ctx, &history, `SELECT * FROM event_histories WHERE id = ? FOR UPDATE`, id); err != nil {
		return nil, err
	}
	return &history, nil
}

func (r *eventHistoryRepository) SaveRendered(ctx context.Context, id string, content string, vars model.Variables, status model.EventHistoryStatus) error {
	query := `UPDATE event_histories
		SET message_content = ?, message_variables = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	_, err := r.exec(ctx, query, content, vars, status, id)
	return err
}

func (r *eventHistoryRepository) UpdateDelivery(ctx context.Context, id string, update DeliveryUpdate) error {
	query := `UPDATE event_histories
		SET status = ?, provider_status_code = ?, external_message_id = ?, message = ?,
			processed_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	_, err := r.exec(ctx, query, update.Status, update.ProviderStatusCode, update.ExternalMessageID,
		update.Message, update.ProcessedAt, id)
	return err
}

func (r *eventHistoryRepository) MarkFailed(ctx context.Context, id string, message string) error {
	query := `UPDATE event_histories SET status = ?, message = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := r.exec(ctx, query, model.EventHistoryFailed, message, id)
	return err
}
