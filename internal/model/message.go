package model

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Variables 模板变量，key 为变量名，value 为含 {token} 的字符串
type Variables map[string]string

// Value 实现 driver.Valuer
func (v Variables) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Scan 实现 sql.Scanner
func (v *Variables) Scan(src interface{}) error {
	return scanJSON(src, v)
}

// MessageButton 消息按钮
type MessageButton struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	URLMobile string `json:"urlMobile,omitempty"`
	URLPC     string `json:"urlPc,omitempty"`
}

// Buttons 按钮列表
type Buttons []MessageButton

// Value 实现 driver.Valuer
func (b Buttons) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b)
}

// Scan 实现 sql.Scanner
func (b *Buttons) Scan(src interface{}) error {
	return scanJSON(src, b)
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
}

// ReviewStatus 模板审核状态
type ReviewStatus string

const (
	ReviewStatusRequested ReviewStatus = "REQUESTED"
	ReviewStatusApproved  ReviewStatus = "APPROVED"
	ReviewStatusRejected  ReviewStatus = "REJECTED"
)

// Message 消息模板
type Message struct {
	ID               int64          `db:"id" json:"id"`
	WorkspaceID      int64          `db:"workspace_id" json:"workspace_id"`
	ContentGroupID   sql.NullInt64  `db:"content_group_id" json:"content_group_id,omitempty"`
	TemplateCode     string         `db:"template_code" json:"template_code"`
	Content          string         `db:"content" json:"content"`
	Variables        Variables      `db:"variables" json:"variables"`
	Buttons          Buttons        `db:"buttons" json:"buttons"`
	Readonly         bool           `db:"readonly" json:"readonly"`
	CompleteDelivery bool           `db:"complete_delivery" json:"complete_delivery"`
	ReviewStatus     sql.NullString `db:"review_status" json:"review_status,omitempty"`
}
