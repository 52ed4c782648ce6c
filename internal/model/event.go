package model

import (
	"database/sql"
	"time"
)

// Event 通知事件定义
type Event struct {
	ID               int64         `db:"id" json:"id"`
	WorkspaceID      int64         `db:"workspace_id" json:"workspace_id"`
	ProductID        int64         `db:"product_id" json:"product_id"`
	ProductVariantID sql.NullInt64 `db:"product_variant_id" json:"product_variant_id,omitempty"`
	MessageID        int64         `db:"message_id" json:"message_id"`
	Status           OrderStatus   `db:"status" json:"status"`
	Enabled          bool          `db:"enabled" json:"enabled"`
	DelayDays        sql.NullInt64 `db:"delay_days" json:"delay_days,omitempty"`
	SendHour         sql.NullInt64 `db:"send_hour" json:"send_hour,omitempty"`
	DeletedAt        sql.NullTime  `db:"deleted_at" json:"deleted_at,omitempty"`

	Message      Message       `db:"message" json:"message"`
	ContentGroup *ContentGroup `db:"-" json:"content_group,omitempty"`
}

// EventHistoryStatus 事件执行状态
type EventHistoryStatus string

const (
	EventHistoryFailed       EventHistoryStatus = "FAILED"
	EventHistoryContentReady EventHistoryStatus = "CONTENT_READY"
	EventHistoryReady        EventHistoryStatus = "READY"
	EventHistorySuccess      EventHistoryStatus = "SUCCESS"
)

// Terminal 是否为终态
func (s EventHistoryStatus) Terminal() bool {
	return s == EventHistoryFailed || s == EventHistorySuccess
}

// EventHistory 单个事件对单个订单的一次执行记录
type EventHistory struct {
	ID                 string             `db:"id" json:"id"`
	EventID            int64              `db:"event_id" json:"event_id"`
	OrderID            int64              `db:"order_id" json:"order_id"`
	WorkspaceCreditID  sql.NullInt64      `db:"workspace_credit_id" json:"workspace_credit_id,omitempty"`
	ContentID          sql.NullInt64      `db:"content_id" json:"content_id,omitempty"`
	Status             EventHistoryStatus `db:"status" json:"status"`
	Message            string             `db:"message" json:"message"`
	MessageContent     sql.NullString     `db:"message_content" json:"message_content,omitempty"`
	MessageVariables   Variables          `db:"message_variables" json:"message_variables,omitempty"`
	ExpiredAt          sql.NullTime       `db:"expired_at" json:"expired_at,omitempty"`
	DownloadCount      int                `db:"download_count" json:"download_count"`
	DownloadLimit      sql.NullInt64      `db:"download_limit" json:"download_limit,omitempty"`
	DisableDownload    bool               `db:"disable_download" json:"disable_download"`
	ExternalMessageID  sql.NullString     `db:"external_message_id" json:"external_message_id,omitempty"`
	ProviderStatusCode sql.NullString     `db:"provider_status_code" json:"provider_status_code,omitempty"`
	ProcessedAt        sql.NullTime       `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}
