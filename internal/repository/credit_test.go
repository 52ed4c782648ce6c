package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopnotify/internal/model"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

func TestCreditRepository_ListSpendable(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCreditRepository(db)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	soon := now.Add(24 * time.Hour)

	rows := sqlmock.NewRows([]string{"id", "workspace_id", "type", "amount", "remain_amount", "reason", "expire_at", "created_at"}).
		AddRow(1, 7, "ADD", 50, 50, "grant", soon, now).
		AddRow(2, 7, "ADD", 50, 50, "grant", nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY expire_at IS NULL, expire_at ASC, id ASC")).
		WithArgs(int64(7), model.CreditTypeAdd, now).
		WillReturnRows(rows)

	credits, err := repo.ListSpendable(context.Background(), 7, now)
	require.NoError(t, err)
	require.Len(t, credits, 2)
	assert.True(t, credits[0].ExpireAt.Valid)
	assert.False(t, credits[1].ExpireAt.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditRepository_InsertWithinTransaction(t *testing.T) {
	t.Run("Given a successful callback When inserting Then the row joins the transaction and commits", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewCreditRepository(db)
		tr := NewTransactor(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO workspace_credits")).
			WithArgs(int64(7), model.CreditTypeUse, int64(30), int64(0), "event", sql.NullTime{}, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(42, 1))
		mock.ExpectCommit()

		credit := &model.WorkspaceCredit{WorkspaceID: 7, Type: model.CreditTypeUse, Amount: 30, Reason: "event"}
		err := tr.WithTx(context.Background(), func(ctx context.Context) error {
			return repo.Insert(ctx, credit)
		})
		require.NoError(t, err)
		assert.Equal(t, int64(42), credit.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Given a failing callback When inserting Then the transaction rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewCreditRepository(db)
		tr := NewTransactor(db)
		boom := errors.New("boom")

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE workspace_credits SET remain_amount")).
			WithArgs(int64(30), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		err := tr.WithTx(context.Background(), func(ctx context.Context) error {
			if err := repo.UpdateRemain(ctx, 1, 30); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Given an outer transaction When nesting WithTx Then only one transaction is opened", func(t *testing.T) {
		db, mock := newMockDB(t)
		tr := NewTransactor(db)

		mock.ExpectBegin()
		mock.ExpectCommit()

		calls := 0
		err := tr.WithTx(context.Background(), func(ctx context.Context) error {
			return tr.WithTx(ctx, func(ctx context.Context) error {
				calls++
				return nil
			})
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWorkspaceRepository_LockByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWorkspaceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM workspaces WHERE id = ? FOR UPDATE")).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.LockByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
