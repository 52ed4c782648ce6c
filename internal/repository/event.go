package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"shopnotify/internal/model"
)

// EventRepository 事件定义仓库接口
type EventRepository interface {
	// FindCandidates 粗筛：工作区、状态、商品未删除、事件启用、消息非只读
	// 规格匹配与内容组只读过滤由调用方完成
	FindCandidates(ctx context.Context, workspaceID, productID int64, status model.OrderStatus) ([]model.Event, error)
	GetByID(ctx context.Context, id int64) (*model.Event, error)
}

type eventRepository struct {
	base
}

// NewEventRepository 创建事件仓库实例
func NewEventRepository(db *sqlx.DB) EventRepository {
	return &eventRepository{base{db: db}}
}

// eventRow 事件联表查询结果
type eventRow struct {
	model.Event
	GroupID            sql.NullInt64  `db:"group_id"`
	GroupWorkspaceID   sql.NullInt64  `db:"group_workspace_id"`
	GroupName          sql.NullString `db:"group_name"`
	GroupOneTime       sql.NullBool   `db:"group_one_time"`
	GroupExpireMinute  sql.NullInt64  `db:"group_expire_minute"`
	GroupDownloadLimit sql.NullInt64  `db:"group_download_limit"`
	GroupReadonly      sql.NullBool   `db:"group_readonly"`
}

func (row eventRow) toEvent() model.Event {
	ev := row.Event
	if row.GroupID.Valid {
		ev.ContentGroup = &model.ContentGroup{
			ID:            row.GroupID.Int64,
			WorkspaceID:   row.GroupWorkspaceID.Int64,
			Name:          row.GroupName.String,
			OneTime:       row.GroupOneTime.Bool,
			ExpireMinute:  row.GroupExpireMinute,
			DownloadLimit: row.GroupDownloadLimit,
			Readonly:      row.GroupReadonly.Bool,
		}
	}
	return ev
}

const selectEvent = `
	SELECT e.id, e.workspace_id, e.product_id, e.product_variant_id, e.message_id, e.status,
		e.enabled, e.delay_days, e.send_hour, e.deleted_at,
		m.id AS "message.id", m.workspace_id AS "message.workspace_id",
		m.content_group_id AS "message.content_group_id", m.template_code AS "message.template_code",
		m.content AS "message.content", m.variables AS "message.variables",
		m.buttons AS "message.buttons", m.readonly AS "message.readonly",
		m.complete_delivery AS "message.complete_delivery", m.review_status AS "message.review_status",
		g.id AS group_id, g.workspace_id AS group_workspace_id, g.name AS group_name,
		g.one_time AS group_one_time, g.expire_minute AS group_expire_minute,
		g.download_limit AS group_download_limit, g.readonly AS group_readonly
	FROM events e
	JOIN messages m ON m.id = e.message_id
	LEFT JOIN content_groups g ON g.id = m.content_group_id
`

func (r *eventRepository) FindCandidates(ctx context.Context, workspaceID, productID int64, status model.OrderStatus) ([]model.Event, error) {
	query := selectEvent + `
	JOIN products p ON p.id = e.product_id AND p.deleted_at IS NULL
	WHERE e.workspace_id = ? AND e.product_id = ? AND e.status = ?
		AND e.enabled = 1 AND e.deleted_at IS NULL AND m.readonly = 0
	ORDER BY e.id
	`
	var rows []eventRow
	if err := r.sel(ctx, &rows, query, workspaceID, productID, status); err != nil {
		return nil, err
	}
	events := make([]model.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toEvent())
	}
	return events, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	var row eventRow
	if err := r.get(ctx, &row, selectEvent+` WHERE e.id = ?`, id); err != nil {
		return nil, err
	}
	ev := row.toEvent()
	return &ev, nil
}
