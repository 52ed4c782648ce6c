package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"shopnotify/internal/model"
)

// CreditRepository 积分流水仓库接口
type CreditRepository interface {
	// ListSpendable 按到期时间升序返回可用的 ADD 流水，无到期时间的排最后
	ListSpendable(ctx context.Context, workspaceID int64, now time.Time) ([]model.WorkspaceCredit, error)
	UpdateRemain(ctx context.Context, id int64, remain int64) error
	Insert(ctx context.Context, credit *model.WorkspaceCredit) error
}

type creditRepository struct {
	base
}

// NewCreditRepository 创建积分流水仓库实例
func NewCreditRepository(db *sqlx.DB) CreditRepository {
	return &creditRepository{base{db: db}}
}

func (r *creditRepository) ListSpendable(ctx context.Context, workspaceID int64, now time.Time) ([]model.WorkspaceCredit, error) {
	query := `
		SELECT * FROM workspace_credits
		WHERE workspace_id = ? AND type = ? AND remain_amount > 0
			AND (expire_at >= ? OR expire_at IS NULL)
		ORDER BY expire_at IS NULL, expire_at ASC, id ASC
		FOR UPDATE
	`
	var credits []model.WorkspaceCredit
	if err := r.sel(ctx, &credits, query, workspaceID, model.CreditTypeAdd, now); err != nil {
		return nil, err
	}
	return credits, nil
}

func (r *creditRepository) UpdateRemain(ctx context.Context, id int64, remain int64) error {
	_, err := r.exec(ctx, `UPDATE workspace_credits SET remain_amount = ? WHERE id = ?`, remain, id)
	return err
}

// Insert 写入流水并回填 ID
func (r *creditRepository) Insert(ctx context.Context, credit *model.WorkspaceCredit) error {
	query := `INSERT INTO workspace_credits (workspace_id, type, amount, remain_amount, reason, expire_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if credit.CreatedAt.IsZero() {
		credit.CreatedAt = time.Now().UTC()
	}
	res, err := r.exec(ctx, query,
		credit.WorkspaceID, credit.Type, credit.Amount, credit.RemainAmount,
		credit.Reason, credit.ExpireAt, credit.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	credit.ID = id
	return nil
}
