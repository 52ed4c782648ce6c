package model

import (
	"database/sql"
	"time"
)

// ContentGroup 数字内容组，定义发放策略
type ContentGroup struct {
	ID            int64         `db:"id" json:"id"`
	WorkspaceID   int64         `db:"workspace_id" json:"workspace_id"`
	Name          string        `db:"name" json:"name"`
	OneTime       bool          `db:"one_time" json:"one_time"`
	ExpireMinute  sql.NullInt64 `db:"expire_minute" json:"expire_minute,omitempty"`
	DownloadLimit sql.NullInt64 `db:"download_limit" json:"download_limit,omitempty"`
	Readonly      bool          `db:"readonly" json:"readonly"`
}

// ContentType 内容类型
type ContentType string

const (
	ContentTypeText ContentType = "TEXT"
	ContentTypeFile ContentType = "FILE"
)

// Content 可发放的单个内容
type Content struct {
	ID             int64          `db:"id" json:"id"`
	ContentGroupID int64          `db:"content_group_id" json:"content_group_id"`
	Type           ContentType    `db:"type" json:"type"`
	Text           sql.NullString `db:"text" json:"text,omitempty"`
	FileURL        sql.NullString `db:"file_url" json:"file_url,omitempty"`
	Used           bool           `db:"used" json:"used"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	DeletedAt      sql.NullTime   `db:"deleted_at" json:"deleted_at,omitempty"`
}
