package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shopnotify/internal/model"
	"shopnotify/internal/repository"
	"shopnotify/pkg/logger"
)

// DebitAdjustment 单条 ADD 流水的扣减计划
type DebitAdjustment struct {
	CreditID int64
	Debit    int64
	Remain   int64
}

// PlanDebit 按给定顺序逐条扣减，直到凑够 amount
// rows 不足以覆盖时返回 ErrInsufficientCredit，不产生任何部分结果
func PlanDebit(rows []model.WorkspaceCredit, amount int64) ([]DebitAdjustment, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}
	var plan []DebitAdjustment
	needed := amount
	for _, row := range rows {
		if needed == 0 {
			break
		}
		if row.RemainAmount <= 0 {
			continue
		}
		debit := min(row.RemainAmount, needed)
		plan = append(plan, DebitAdjustment{
			CreditID: row.ID,
			Debit:    debit,
			Remain:   row.RemainAmount - debit,
		})
		needed -= debit
	}
	if needed > 0 {
		return nil, ErrInsufficientCredit
	}
	return plan, nil
}

// CreditService 积分账本服务
type CreditService struct {
	tx         repository.Transactor
	workspaces repository.WorkspaceRepository
	credits    repository.CreditRepository
	logger     *logger.Logger
	now        func() time.Time
}

// NewCreditService 创建积分账本服务
func NewCreditService(
	tx repository.Transactor,
	workspaces repository.WorkspaceRepository,
	credits repository.CreditRepository,
	logger *logger.Logger,
) *CreditService {
	return &CreditService{
		tx:         tx,
		workspaces: workspaces,
		credits:    credits,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Use 扣减积分，优先消耗最早到期的额度
// ctx 上已有事务时加入该事务
func (s *CreditService) Use(ctx context.Context, workspaceID, amount int64, reason string) (*model.WorkspaceCredit, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}

	var used *model.WorkspaceCredit
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		ws, err := s.workspaces.LockByID(ctx, workspaceID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrWorkspaceNotFound
			}
			return fmt.Errorf("锁定工作区失败: %w", err)
		}
		if ws.Credit < amount {
			return ErrInsufficientCredit
		}

		now := s.now()
		rows, err := s.credits.ListSpendable(ctx, workspaceID, now)
		if err != nil {
			return fmt.Errorf("查询可用积分失败: %w", err)
		}
		plan, err := PlanDebit(rows, amount)
		if err != nil {
			return err
		}
		for _, adj := range plan {
			if err := s.credits.UpdateRemain(ctx, adj.CreditID, adj.Remain); err != nil {
				return fmt.Errorf("更新积分余额失败: %w", err)
			}
		}

		if err := s.workspaces.AdjustCredit(ctx, workspaceID, -amount); err != nil {
			return fmt.Errorf("扣减工作区积分失败: %w", err)
		}
		used = &model.WorkspaceCredit{
			WorkspaceID:  workspaceID,
			Type:         model.CreditTypeUse,
			Amount:       amount,
			RemainAmount: 0,
			Reason:       reason,
			CreatedAt:    now,
		}
		if err := s.credits.Insert(ctx, used); err != nil {
			return fmt.Errorf("写入积分流水失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("积分已扣减", "workspace_id", workspaceID, "amount", amount, "credit_id", used.ID)
	return used, nil
}

// Create 发放积分，expireAfterDays 为 nil 时永不过期
func (s *CreditService) Create(ctx context.Context, workspaceID, amount int64, reason string, expireAfterDays *int) (*model.WorkspaceCredit, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var added *model.WorkspaceCredit
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.workspaces.LockByID(ctx, workspaceID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrWorkspaceNotFound
			}
			return fmt.Errorf("锁定工作区失败: %w", err)
		}

		now := s.now()
		added = &model.WorkspaceCredit{
			WorkspaceID:  workspaceID,
			Type:         model.CreditTypeAdd,
			Amount:       amount,
			RemainAmount: amount,
			Reason:       reason,
			CreatedAt:    now,
		}
		if expireAfterDays != nil {
			added.ExpireAt = sql.NullTime{Time: now.AddDate(0, 0, *expireAfterDays), Valid: true}
		}

		if err := s.workspaces.AdjustCredit(ctx, workspaceID, amount); err != nil {
			return fmt.Errorf("增加工作区积分失败: %w", err)
		}
		if err := s.credits.Insert(ctx, added); err != nil {
			return fmt.Errorf("写入积分流水失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("积分已发放", "workspace_id", workspaceID, "amount", amount, "credit_id", added.ID)
	return added, nil
}

// Balance 获取工作区当前积分
func (s *CreditService) Balance(ctx context.Context, workspaceID int64) (int64, error) {
	ws, err := s.workspaces.GetByID(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrWorkspaceNotFound
		}
		return 0, err
	}
	return ws.Credit, nil
}
