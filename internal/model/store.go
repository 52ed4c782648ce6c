package model

import (
	"database/sql"
	"time"
)

// Store 对接的店铺
type Store struct {
	ID                int64        `db:"id" json:"id"`
	WorkspaceID       int64        `db:"workspace_id" json:"workspace_id"`
	Name              string       `db:"name" json:"name"`
	ApplicationID     string       `db:"application_id" json:"application_id"`
	ApplicationSecret string       `db:"application_secret" json:"-"`
	Enabled           bool         `db:"enabled" json:"enabled"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`
	DeletedAt         sql.NullTime `db:"deleted_at" json:"deleted_at,omitempty"`
}

// StoreCredentials 调用店铺平台接口所需凭证
type StoreCredentials struct {
	StoreID           int64
	ApplicationID     string
	ApplicationSecret string
}

// Credentials 返回店铺凭证
func (s *Store) Credentials() StoreCredentials {
	return StoreCredentials{
		StoreID:           s.ID,
		ApplicationID:     s.ApplicationID,
		ApplicationSecret: s.ApplicationSecret,
	}
}
