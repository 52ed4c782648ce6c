package service

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"shopnotify/pkg/logger"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// testEnv 基于内存数据库装配的全部服务
type testEnv struct {
	db         *memDB
	credits    *CreditService
	contents   *ContentAllocator
	resolver   *EventResolver
	builder    *FulfillmentBuilder
	renderer   *MessageRenderer
	reconciler *OrderReconciler
	pipeline   *Pipeline
	delivery   *DeliveryReconciler
	review     *TemplateReviewService

	dispatcher *fakeDispatcher
	commerce   *fakeCommerce
	notifier   *fakeNotifier
	redis      *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.NewNop()
	db := newMemDB()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	env := &testEnv{
		db:         db,
		dispatcher: &fakeDispatcher{},
		commerce:   &fakeCommerce{},
		notifier:   &fakeNotifier{},
		redis:      mr,
	}

	env.credits = NewCreditService(db, memWorkspaces{db}, memCredits{db}, log)
	env.credits.now = func() time.Time { return testNow }
	env.contents = NewContentAllocator(memContents{db})
	env.resolver = NewEventResolver(memEvents{db})

	env.builder = NewFulfillmentBuilder(db, memWorkspaces{db}, memHistories{db}, memOrderHistories{db},
		env.credits, env.contents, 4, log)
	env.builder.now = func() time.Time { return testNow }

	env.renderer = NewMessageRenderer(memEvents{db}, memOrders{db}, memStores{db}, memProducts{db},
		memContents{db}, memHistories{db}, "https://files.example.com/", 4, log)

	env.reconciler = NewOrderReconciler(db, memStores{db}, memProducts{db}, memOrders{db},
		memOrderHistories{db}, env.resolver, newFakeLocker(), 4, log)

	env.pipeline = NewPipeline(db, env.builder, env.renderer, env.dispatcher, memHistories{db}, env.contents, log)

	env.delivery = NewDeliveryReconciler(db, memHistories{db}, memEvents{db}, memOrders{db}, memStores{db},
		memWorkspaces{db}, env.contents, env.commerce, env.notifier, rdb, 3, 4, log)

	env.review = NewTemplateReviewService(memMessages{db}, log)
	return env
}
