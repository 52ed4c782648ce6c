package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

type txKey struct{}

// Transactor 事务管理接口
// ctx 中已有事务时直接加入，否则开启新事务
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type transactor struct {
	db *sqlx.DB
}

// NewTransactor 创建事务管理器
func NewTransactor(db *sqlx.DB) Transactor {
	return &transactor{db: db}
}

// WithTx 在事务中执行 fn，fn 返回错误或 panic 时回滚
func (t *transactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (回滚失败: %v)", err, rbErr)
			}
			return
		}
		if cmErr := tx.Commit(); cmErr != nil {
			err = fmt.Errorf("提交事务失败: %w", cmErr)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, tx))
}

// base 各仓库共用，优先使用 ctx 上的事务
type base struct {
	db *sqlx.DB
}

func (b base) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return b.db
}

func (b base) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	err := sqlx.GetContext(ctx, b.ext(ctx), dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (b base) sel(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, b.ext(ctx), dest, query, args...)
}

func (b base) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return b.ext(ctx).ExecContext(ctx, query, args...)
}
