package model

import (
	"database/sql"
	"time"
)

// Workspace 工作区，credit 为物化余额
type Workspace struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Credit    int64     `db:"credit" json:"credit"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MemberRoleOwner 工作区所有者
const MemberRoleOwner = "OWNER"

// WorkspaceMember 工作区成员
type WorkspaceMember struct {
	WorkspaceID int64  `db:"workspace_id" json:"workspace_id"`
	Email       string `db:"email" json:"email"`
	Role        string `db:"role" json:"role"`
}

// Plan 订阅套餐
type Plan struct {
	ID             int64  `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	ContentCredit  int64  `db:"content_credit" json:"content_credit"`
	AlimTalkCredit int64  `db:"alim_talk_credit" json:"alim_talk_credit"`
	StoreLimit     int    `db:"store_limit" json:"store_limit"`
}

// Subscription 工作区当前有效订阅及其套餐
type Subscription struct {
	ID          int64        `db:"id" json:"id"`
	WorkspaceID int64        `db:"workspace_id" json:"workspace_id"`
	PlanID      int64        `db:"plan_id" json:"plan_id"`
	Status      string       `db:"status" json:"status"`
	StartedAt   time.Time    `db:"started_at" json:"started_at"`
	EndedAt     sql.NullTime `db:"ended_at" json:"ended_at,omitempty"`

	Plan Plan `db:"plan" json:"plan"`
}

// CreditType 积分流水类型
type CreditType string

const (
	CreditTypeAdd CreditType = "ADD"
	CreditTypeUse CreditType = "USE"
)

// WorkspaceCredit 积分流水，只追加
type WorkspaceCredit struct {
	ID           int64        `db:"id" json:"id"`
	WorkspaceID  int64        `db:"workspace_id" json:"workspace_id"`
	Type         CreditType   `db:"type" json:"type"`
	Amount       int64        `db:"amount" json:"amount"`
	RemainAmount int64        `db:"remain_amount" json:"remain_amount"`
	Reason       string       `db:"reason" json:"reason"`
	ExpireAt     sql.NullTime `db:"expire_at" json:"expire_at,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}
