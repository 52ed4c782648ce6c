package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"shopnotify/internal/model"
)

// WorkspaceRepository 工作区仓库接口
type WorkspaceRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Workspace, error)
	// LockByID 在当前事务中锁定工作区行
	LockByID(ctx context.Context, id int64) (*model.Workspace, error)
	AdjustCredit(ctx context.Context, id int64, delta int64) error
	OwnerEmails(ctx context.Context, id int64) ([]string, error)
	FindActiveSubscription(ctx context.Context, workspaceID int64) (*model.Subscription, error)
}

type workspaceRepository struct {
	base
}

// NewWorkspaceRepository 创建工作区仓库实例
func NewWorkspaceRepository(db *sqlx.DB) WorkspaceRepository {
	return &workspaceRepository{base{db: db}}
}

func (r *workspaceRepository) GetByID(ctx context.Context, id int64) (*model.Workspace, error) {
	var ws model.Workspace
	if err := r.get(ctx, &ws, `SELECT * FROM workspaces WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *workspaceRepository) LockByID(ctx context.Context, id int64) (*model.Workspace, error) {
	var ws model.Workspace
	if err := r.get(ctx, &ws, `SELECT * FROM workspaces WHERE id = ? FOR UPDATE`, id); err != nil {
		return nil, err
	}
	return &ws, nil
}

// AdjustCredit 调整物化余额，调用方需已通过 LockByID 锁定该行
func (r *workspaceRepository) AdjustCredit(ctx context.Context, id int64, delta int64) error {
	_, err := r.exec(ctx, `UPDATE workspaces SET credit = credit + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, delta, id)
	return err
}

// OwnerEmails 获取工作区所有者邮箱
func (r *workspaceRepository) OwnerEmails(ctx context.Context, id int64) ([]string, error) {
	var emails []string
	query := `SELECT email FROM workspace_members WHERE workspace_id = ? AND role = ?`
	if err := r.sel(ctx, &emails, query, id, model.MemberRoleOwner); err != nil {
		return nil, err
	}
	return emails, nil
}

// FindActiveSubscription 获取当前有效订阅，没有时返回 ErrNotFound
func (r *workspaceRepository) FindActiveSubscription(ctx context.Context, workspaceID int64) (*model.Subscription, error) {
	var sub model.Subscription
	query := `
		SELECT s.id, s.workspace_id, s.plan_id, s.status, s.started_at, s.ended_at,
			p.id AS "plan.id", p.name AS "plan.name",
			p.content_credit AS "plan.content_credit",
			p.alim_talk_credit AS "plan.alim_talk_credit",
			p.store_limit AS "plan.store_limit"
		FROM workspace_subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.workspace_id = ? AND s.status = 'ACTIVE'
			AND (s.ended_at IS NULL OR s.ended_at > UTC_TIMESTAMP())
		ORDER BY s.started_at DESC
		LIMIT 1
	`
	if err := r.get(ctx, &sub, query, workspaceID); err != nil {
		return nil, err
	}
	return &sub, nil
}
