package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"shopnotify/internal/model"
	"shopnotify/internal/repository"
)

// memState 内存数据库的全部表
type memState struct {
	nextID         int64
	workspaces     map[int64]model.Workspace
	subscriptions  map[int64]model.Subscription
	owners         map[int64][]string
	credits        []model.WorkspaceCredit
	stores         map[int64]model.Store
	products       []model.Product
	variants       []model.ProductVariant
	orders         []model.Order
	orderHistories []model.OrderHistory
	events         []model.Event
	histories      map[string]model.EventHistory
	contents       []model.Content
	messages       []model.Message
}

func (s *memState) clone() *memState {
	c := *s
	c.workspaces = cloneMap(s.workspaces)
	c.subscriptions = cloneMap(s.subscriptions)
	c.owners = cloneMap(s.owners)
	c.stores = cloneMap(s.stores)
	c.histories = cloneMap(s.histories)
	c.credits = append([]model.WorkspaceCredit(nil), s.credits...)
	c.products = append([]model.Product(nil), s.products...)
	c.variants = append([]model.ProductVariant(nil), s.variants...)
	c.orders = append([]model.Order(nil), s.orders...)
	c.orderHistories = append([]model.OrderHistory(nil), s.orderHistories...)
	c.events = append([]model.Event(nil), s.events...)
	c.contents = append([]model.Content(nil), s.contents...)
	c.messages = append([]model.Message(nil), s.messages...)
	return &c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type memTxKey struct{}

// memDB 所有事务串行执行，回滚时恢复快照
type memDB struct {
	mu    sync.Mutex
	state *memState

	// failures 按操作名注入错误
	failures map[string]error
}

func newMemDB() *memDB {
	return &memDB{
		state: &memState{
			nextID:        1000,
			workspaces:    map[int64]model.Workspace{},
			subscriptions: map[int64]model.Subscription{},
			owners:        map[int64][]string{},
			stores:        map[int64]model.Store{},
			histories:     map[string]model.EventHistory{},
		},
		failures: map[string]error{},
	}
}

func (m *memDB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.state.clone()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

// do 在事务内直接执行，否则作为单语句事务执行
func (m *memDB) do(ctx context.Context, op string, fn func(s *memState) error) error {
	if ctx.Value(memTxKey{}) == nil {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	if err := m.failures[op]; err != nil {
		return err
	}
	return fn(m.state)
}

func (m *memDB) fail(op string, err error) { m.failures[op] = err }

func (m *memDB) id(s *memState) int64 {
	s.nextID++
	return s.nextID
}

// snapshot 读取当前状态的副本，测试断言使用
func (m *memDB) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// ---- seeding ----

func (m *memDB) addWorkspace(id, credit int64) {
	m.state.workspaces[id] = model.Workspace{ID: id, Name: "ws", Credit: credit}
}

func (m *memDB) addSubscription(workspaceID, contentCredit, alimTalkCredit int64) {
	m.state.subscriptions[workspaceID] = model.Subscription{
		ID:          workspaceID,
		WorkspaceID: workspaceID,
		Status:      "ACTIVE",
		Plan:        model.Plan{ContentCredit: contentCredit, AlimTalkCredit: alimTalkCredit},
	}
}

func (m *memDB) addGrant(workspaceID, amount int64, expireAt *time.Time) int64 {
	s := m.state
	row := model.WorkspaceCredit{
		ID:           m.id(s),
		WorkspaceID:  workspaceID,
		Type:         model.CreditTypeAdd,
		Amount:       amount,
		RemainAmount: amount,
	}
	if expireAt != nil {
		row.ExpireAt.Time, row.ExpireAt.Valid = *expireAt, true
	}
	s.credits = append(s.credits, row)
	ws := s.workspaces[workspaceID]
	ws.Credit += amount
	s.workspaces[workspaceID] = ws
	return row.ID
}

func (m *memDB) addStore(store model.Store) {
	m.state.stores[store.ID] = store
}

func (m *memDB) addEvent(ev model.Event) {
	m.state.events = append(m.state.events, ev)
}

func (m *memDB) addContent(c model.Content) {
	m.state.contents = append(m.state.contents, c)
}

// ---- repositories ----

type memWorkspaces struct{ *memDB }

func (r memWorkspaces) GetByID(ctx context.Context, id int64) (*model.Workspace, error) {
	var out *model.Workspace
	err := r.do(ctx, "workspace.get", func(s *memState) error {
		ws, ok := s.workspaces[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &ws
		return nil
	})
	return out, err
}

func (r memWorkspaces) LockByID(ctx context.Context, id int64) (*model.Workspace, error) {
	return r.GetByID(ctx, id)
}

func (r memWorkspaces) AdjustCredit(ctx context.Context, id int64, delta int64) error {
	return r.do(ctx, "workspace.adjust", func(s *memState) error {
		ws, ok := s.workspaces[id]
		if !ok {
			return repository.ErrNotFound
		}
		ws.Credit += delta
		s.workspaces[id] = ws
		return nil
	})
}

func (r memWorkspaces) OwnerEmails(ctx context.Context, id int64) ([]string, error) {
	var out []string
	err := r.do(ctx, "workspace.owners", func(s *memState) error {
		out = append(out, s.owners[id]...)
		return nil
	})
	return out, err
}

func (r memWorkspaces) FindActiveSubscription(ctx context.Context, workspaceID int64) (*model.Subscription, error) {
	var out *model.Subscription
	err := r.do(ctx, "subscription.find", func(s *memState) error {
		sub, ok := s.subscriptions[workspaceID]
		if !ok {
			return repository.ErrNotFound
		}
		out = &sub
		return nil
	})
	return out, err
}

type memCredits struct{ *memDB }

func (r memCredits) ListSpendable(ctx context.Context, workspaceID int64, now time.Time) ([]model.WorkspaceCredit, error) {
	var out []model.WorkspaceCredit
	err := r.do(ctx, "credit.list", func(s *memState) error {
		for _, c := range s.credits {
			if c.WorkspaceID != workspaceID || c.Type != model.CreditTypeAdd || c.RemainAmount <= 0 {
				continue
			}
			if c.ExpireAt.Valid && c.ExpireAt.Time.Before(now) {
				continue
			}
			out = append(out, c)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ExpireAt.Valid != b.ExpireAt.Valid {
			return a.ExpireAt.Valid
		}
		if a.ExpireAt.Valid && !a.ExpireAt.Time.Equal(b.ExpireAt.Time) {
			return a.ExpireAt.Time.Before(b.ExpireAt.Time)
		}
		return a.ID < b.ID
	})
	return out, err
}

func (r memCredits) UpdateRemain(ctx context.Context, id int64, remain int64) error {
	return r.do(ctx, "credit.update", func(s *memState) error {
		for i := range s.credits {
			if s.credits[i].ID == id {
				s.credits[i].RemainAmount = remain
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (r memCredits) Insert(ctx context.Context, credit *model.WorkspaceCredit) error {
	return r.do(ctx, "credit.insert", func(s *memState) error {
		credit.ID = r.id(s)
		s.credits = append(s.credits, *credit)
		return nil
	})
}

type memStores struct{ *memDB }

func (r memStores) GetByID(ctx context.Context, id int64) (*model.Store, error) {
	var out *model.Store
	err := r.do(ctx, "store.get", func(s *memState) error {
		st, ok := s.stores[id]
		if !ok || st.DeletedAt.Valid {
			return repository.ErrNotFound
		}
		out = &st
		return nil
	})
	return out, err
}

func (r memStores) Disable(ctx context.Context, id int64) error {
	return r.do(ctx, "store.disable", func(s *memState) error {
		st := s.stores[id]
		st.Enabled = false
		s.stores[id] = st
		return nil
	})
}

type memProducts struct{ *memDB }

func (r memProducts) Upsert(ctx context.Context, product *model.Product) error {
	return r.do(ctx, "product.upsert", func(s *memState) error {
		for i := range s.products {
			p := &s.products[i]
			if p.ProductID == product.ProductID && p.StoreID == product.StoreID {
				p.DeletedAt.Valid = false
				product.ID = p.ID
				product.Name = p.Name
				return nil
			}
		}
		product.ID = r.id(s)
		s.products = append(s.products, *product)
		return nil
	})
}

func (r memProducts) UpsertVariant(ctx context.Context, variant *model.ProductVariant) error {
	return r.do(ctx, "variant.upsert", func(s *memState) error {
		for i := range s.variants {
			v := &s.variants[i]
			if v.VariantID == variant.VariantID && v.ProductID == variant.ProductID {
				v.DeletedAt.Valid = false
				variant.ID = v.ID
				return nil
			}
		}
		variant.ID = r.id(s)
		s.variants = append(s.variants, *variant)
		return nil
	})
}

func (r memProducts) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	var out *model.Product
	err := r.do(ctx, "product.get", func(s *memState) error {
		for _, p := range s.products {
			if p.ID == id {
				out = &p
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r memProducts) GetVariantByID(ctx context.Context, id int64) (*model.ProductVariant, error) {
	var out *model.ProductVariant
	err := r.do(ctx, "variant.get", func(s *memState) error {
		for _, v := range s.variants {
			if v.ID == id {
				out = &v
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

type memOrders struct{ *memDB }

func (r memOrders) GetForUpdate(ctx context.Context, storeID int64, orderID, productOrderID string) (*model.Order, error) {
	var out *model.Order
	err := r.do(ctx, "order.get", func(s *memState) error {
		for _, o := range s.orders {
			if o.StoreID == storeID && o.OrderID == orderID && o.ProductOrderID == productOrderID {
				out = &o
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r memOrders) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var out *model.Order
	err := r.do(ctx, "order.get", func(s *memState) error {
		for _, o := range s.orders {
			if o.ID == id && !o.DeletedAt.Valid {
				out = &o
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r memOrders) Upsert(ctx context.Context, order *model.Order) error {
	return r.do(ctx, "order.upsert", func(s *memState) error {
		for i := range s.orders {
			o := &s.orders[i]
			if o.StoreID == order.StoreID && o.OrderID == order.OrderID && o.ProductOrderID == order.ProductOrderID {
				order.ID = o.ID
				*o = *order
				return nil
			}
		}
		order.ID = r.id(s)
		s.orders = append(s.orders, *order)
		return nil
	})
}

type memOrderHistories struct{ *memDB }

func (r memOrderHistories) Insert(ctx context.Context, history *model.OrderHistory) error {
	return r.do(ctx, "orderHistory.insert", func(s *memState) error {
		history.ID = r.id(s)
		s.orderHistories = append(s.orderHistories, *history)
		return nil
	})
}

func (r memOrderHistories) InsertBatch(ctx context.Context, histories []model.OrderHistory) error {
	return r.do(ctx, "orderHistory.insertBatch", func(s *memState) error {
		for _, h := range histories {
			h.ID = r.id(s)
			s.orderHistories = append(s.orderHistories, h)
		}
		return nil
	})
}

type memEvents struct{ *memDB }

func (r memEvents) FindCandidates(ctx context.Context, workspaceID, productID int64, status model.OrderStatus) ([]model.Event, error) {
	var out []model.Event
	err := r.do(ctx, "event.find", func(s *memState) error {
		for _, ev := range s.events {
			if ev.WorkspaceID == workspaceID && ev.ProductID == productID && ev.Status == status {
				out = append(out, ev)
			}
		}
		return nil
	})
	return out, err
}

func (r memEvents) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	var out *model.Event
	err := r.do(ctx, "event.get", func(s *memState) error {
		for _, ev := range s.events {
			if ev.ID == id {
				out = &ev
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

type memHistories struct{ *memDB }

func (r memHistories) Insert(ctx context.Context, history *model.EventHistory) error {
	return r.do(ctx, "history.insert", func(s *memState) error {
		if _, exists := s.histories[history.ID]; exists {
			return errors.New("duplicate event history id")
		}
		s.histories[history.ID] = *history
		return nil
	})
}

func (r memHistories) GetByID(ctx context.Context, id string) (*model.EventHistory, error) {
	var out *model.EventHistory
	err := r.do(ctx, "history.get", func(s *memState) error {
		h, ok := s.histories[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &h
		return nil
	})
	return out, err
}

func (r memHistories) GetForUpdate(ctx context.Context, id string) (*model.EventHistory, error) {
	return r.GetByID(ctx, id)
}

func (r memHistories) SaveRendered(ctx context.Context, id string, content string, vars model.Variables, status model.EventHistoryStatus) error {
	return r.do(ctx, "history.saveRendered", func(s *memState) error {
		h, ok := s.histories[id]
		if !ok {
			return repository.ErrNotFound
		}
		h.MessageContent.String, h.MessageContent.Valid = content, true
		h.MessageVariables = vars
		h.Status = status
		s.histories[id] = h
		return nil
	})
}

func (r memHistories) UpdateDelivery(ctx context.Context, id string, update repository.DeliveryUpdate) error {
	return r.do(ctx, "history.updateDelivery", func(s *memState) error {
		h, ok := s.histories[id]
		if !ok {
			return repository.ErrNotFound
		}
		h.Status = update.Status
		h.ProviderStatusCode.String, h.ProviderStatusCode.Valid = update.ProviderStatusCode, true
		h.ExternalMessageID.String, h.ExternalMessageID.Valid = update.ExternalMessageID, true
		h.Message = update.Message
		h.ProcessedAt.Time, h.ProcessedAt.Valid = update.ProcessedAt, true
		s.histories[id] = h
		return nil
	})
}

func (r memHistories) MarkFailed(ctx context.Context, id string, message string) error {
	return r.do(ctx, "history.markFailed", func(s *memState) error {
		h, ok := s.histories[id]
		if !ok {
			return repository.ErrNotFound
		}
		h.Status = model.EventHistoryFailed
		h.Message = message
		s.histories[id] = h
		return nil
	})
}

type memContents struct{ *memDB }

func (r memContents) ClaimUnused(ctx context.Context, groupID int64) (*model.Content, error) {
	return r.claim(ctx, groupID, true)
}

func (r memContents) ClaimAny(ctx context.Context, groupID int64) (*model.Content, error) {
	return r.claim(ctx, groupID, false)
}

func (r memContents) claim(ctx context.Context, groupID int64, unusedOnly bool) (*model.Content, error) {
	var out *model.Content
	err := r.do(ctx, "content.claim", func(s *memState) error {
		for _, c := range s.contents {
			if c.ContentGroupID != groupID || c.DeletedAt.Valid || (unusedOnly && c.Used) {
				continue
			}
			out = &c
			return nil
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r memContents) MarkUsed(ctx context.Context, id int64) error {
	return r.setUsed(ctx, []int64{id}, true)
}

func (r memContents) Release(ctx context.Context, ids []int64) error {
	return r.setUsed(ctx, ids, false)
}

func (r memContents) setUsed(ctx context.Context, ids []int64, used bool) error {
	return r.do(ctx, "content.setUsed", func(s *memState) error {
		for _, id := range ids {
			for i := range s.contents {
				if s.contents[i].ID == id {
					s.contents[i].Used = used
				}
			}
		}
		return nil
	})
}

func (r memContents) GetByID(ctx context.Context, id int64) (*model.Content, error) {
	var out *model.Content
	err := r.do(ctx, "content.get", func(s *memState) error {
		for _, c := range s.contents {
			if c.ID == id {
				out = &c
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

type memMessages struct{ *memDB }

func (r memMessages) UpdateReviewStatus(ctx context.Context, templateCode string, status model.ReviewStatus) (int64, error) {
	var n int64
	err := r.do(ctx, "message.review", func(s *memState) error {
		for i := range s.messages {
			if s.messages[i].TemplateCode == templateCode {
				s.messages[i].ReviewStatus.String, s.messages[i].ReviewStatus.Valid = string(status), true
				n++
			}
		}
		return nil
	})
	return n, err
}

// ---- external collaborators ----

type fakeLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newFakeLocker() *fakeLocker { return &fakeLocker{locks: map[string]*sync.Mutex{}} }

func (l *fakeLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock, nil
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []OutboundMessage
	err  error
}

func (d *fakeDispatcher) Send(_ context.Context, msg OutboundMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, msg)
	return nil
}

type completionCall struct {
	StoreID int64
	IDs     []string
}

type fakeCommerce struct {
	mu    sync.Mutex
	calls []completionCall
	err   error
}

func (c *fakeCommerce) CompleteDelivery(_ context.Context, creds model.StoreCredentials, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, completionCall{StoreID: creds.StoreID, IDs: append([]string(nil), ids...)})
	return c.err
}

type notification struct {
	To        []string
	StoreName string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *fakeNotifier) NotifyIntegrationDisabled(_ context.Context, to []string, storeName, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{To: to, StoreName: storeName})
	return nil
}
