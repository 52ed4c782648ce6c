package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopnotify/internal/model"
)

func orderRecord(status model.OrderStatus) OrderRecord {
	return OrderRecord{
		StoreID:        1,
		OrderID:        "O1",
		ProductOrderID: "P1",
		ProductID:      "SKU1",
		ProductName:    "Ebook",
		Status:         status,
		ReceiverPhone:  "01012345678",
		Price:          decimal.NewFromInt(1000),
		Quantity:       1,
		OrderAt:        testNow,
	}
}

func statusChanges(s *memState) []model.OrderHistory {
	var out []model.OrderHistory
	for _, h := range s.orderHistories {
		if h.Type == model.OrderHistoryStatusChange {
			out = append(out, h)
		}
	}
	return out
}

func newReconcileEnv(t *testing.T) *testEnv {
	env := newTestEnv(t)
	env.db.addStore(model.Store{ID: 1, WorkspaceID: 1, Name: "Shop", Enabled: true})
	return env
}

func TestOrderReconciler_NewOrder(t *testing.T) {
	env := newReconcileEnv(t)
	// 预置商品以便挂载事件
	env.db.state.products = append(env.db.state.products, model.Product{ID: 5, WorkspaceID: 1, StoreID: 1, ProductID: "SKU1", Name: "Ebook"})
	env.db.addEvent(model.Event{ID: 100, WorkspaceID: 1, ProductID: 5, Status: model.OrderStatusPayed, Enabled: true})
	env.db.addEvent(model.Event{ID: 101, WorkspaceID: 1, ProductID: 5, Status: model.OrderStatusDelivered, Enabled: true})

	results := env.reconciler.ReconcileBatch(context.Background(), []OrderRecord{orderRecord(model.OrderStatusPayed)})

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	res := results[0].Value
	assert.False(t, res.IsStatusChanged)
	assert.Equal(t, int64(1), res.WorkspaceID)
	assert.Equal(t, []int64{100}, eventIDs(res.Events))

	s := env.db.snapshot()
	require.Len(t, s.orders, 1)
	assert.Equal(t, model.OrderStatusPayed, s.orders[0].Status)
	assert.Equal(t, int64(5), s.orders[0].ProductID)
	assert.Empty(t, statusChanges(s))
}

func TestOrderReconciler_CreatesProductAndVariant(t *testing.T) {
	env := newReconcileEnv(t)
	rec := orderRecord(model.OrderStatusPayed)
	rec.VariantID = "V1"
	rec.VariantName = "PDF"

	results := env.reconciler.ReconcileBatch(context.Background(), []OrderRecord{rec})
	require.NoError(t, results[0].Err)

	s := env.db.snapshot()
	require.Len(t, s.products, 1)
	assert.Equal(t, "SKU1", s.products[0].ProductID)
	assert.Equal(t, int64(1), s.products[0].StoreID)
	require.Len(t, s.variants, 1)
	assert.Equal(t, s.products[0].ID, s.variants[0].ProductID)
	assert.Equal(t, s.variants[0].ID, s.orders[0].ProductVariantID.Int64)
}

func TestOrderReconciler_RestoresSoftDeletedProduct(t *testing.T) {
	env := newReconcileEnv(t)
	env.db.state.products = append(env.db.state.products, model.Product{
		ID: 5, StoreID: 1, ProductID: "SKU1", DeletedAt: sql.NullTime{Time: testNow, Valid: true},
	})

	results := env.reconciler.ReconcileBatch(context.Background(), []OrderRecord{orderRecord(model.OrderStatusPayed)})
	require.NoError(t, results[0].Err)

	s := env.db.snapshot()
	require.Len(t, s.products, 1)
	assert.False(t, s.products[0].DeletedAt.Valid)
}

func TestOrderReconciler_StatusTransitions(t *testing.T) {
	tests := []struct {
		name        string
		first       model.OrderStatus
		second      model.OrderStatus
		wantChanged bool
		wantEvents  []int64
	}{
		{
			name:        "Given the same record twice When reconciling Then no status change and no events",
			first:       model.OrderStatusPayed,
			second:      model.OrderStatusPayed,
			wantChanged: false,
			wantEvents:  nil,
		},
		{
			name:        "Given a new status When reconciling Then one status change and events for the new status",
			first:       model.OrderStatusPayed,
			second:      model.OrderStatusDelivered,
			wantChanged: true,
			wantEvents:  []int64{101},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newReconcileEnv(t)
			env.db.state.products = append(env.db.state.products, model.Product{ID: 5, WorkspaceID: 1, StoreID: 1, ProductID: "SKU1"})
			env.db.addEvent(model.Event{ID: 100, WorkspaceID: 1, ProductID: 5, Status: model.OrderStatusPayed, Enabled: true})
			env.db.addEvent(model.Event{ID: 101, WorkspaceID: 1, ProductID: 5, Status: model.OrderStatusDelivered, Enabled: true})
			ctx := context.Background()

			first := env.reconciler.ReconcileBatch(ctx, []OrderRecord{orderRecord(tt.first)})
			require.NoError(t, first[0].Err)

			second := env.reconciler.ReconcileBatch(ctx, []OrderRecord{orderRecord(tt.second)})
			require.NoError(t, second[0].Err)
			res := second[0].Value

			assert.Equal(t, tt.wantChanged, res.IsStatusChanged)
			assert.Equal(t, tt.first, res.PreviousStatus)
			if tt.wantEvents == nil {
				assert.Empty(t, res.Events)
			} else {
				assert.Equal(t, tt.wantEvents, eventIDs(res.Events))
			}

			s := env.db.snapshot()
			require.Len(t, s.orders, 1)
			assert.Equal(t, first[0].Value.Order.ID, res.Order.ID)
			changes := statusChanges(s)
			if tt.wantChanged {
				require.Len(t, changes, 1)
				assert.Equal(t, string(tt.second), changes[0].Status.String)
				assert.Equal(t, res.Order.ID, changes[0].OrderID)
			} else {
				assert.Empty(t, changes)
			}
		})
	}
}

func TestOrderReconciler_IsolatesItemFailures(t *testing.T) {
	env := newReconcileEnv(t)

	good := orderRecord(model.OrderStatusPayed)
	missingStore := orderRecord(model.OrderStatusPayed)
	missingStore.StoreID = 99
	missingStore.OrderID = "O2"
	invalid := orderRecord("NOT_A_STATUS")
	invalid.OrderID = "O3"

	results := env.reconciler.ReconcileBatch(context.Background(), []OrderRecord{good, missingStore, invalid})

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, ErrStoreNotFound)
	var verr *ValidationError
	require.True(t, errors.As(results[2].Err, &verr))
	assert.Equal(t, "status", verr.Field)
	assert.Equal(t, 2, results[2].Index)

	s := env.db.snapshot()
	require.Len(t, s.orders, 1)
	assert.Equal(t, "O1", s.orders[0].OrderID)
	assert.Len(t, s.products, 1)
}

func TestOrderReconciler_SameOrderInOneBatch(t *testing.T) {
	env := newReconcileEnv(t)
	delivered := orderRecord(model.OrderStatusDelivered)
	delivered.OrderAt = testNow.Add(time.Hour)

	results := env.reconciler.ReconcileBatch(context.Background(), []OrderRecord{
		orderRecord(model.OrderStatusPayed),
		delivered,
	})
	require.NoError(t, results[0].Err)
	require.NoError(t, results[1].Err)

	s := env.db.snapshot()
	require.Len(t, s.orders, 1)
	changed := 0
	for _, r := range results {
		if r.Value.IsStatusChanged {
			changed++
		}
	}
	assert.Equal(t, 1, changed)
	assert.Len(t, statusChanges(s), 1)
}
