package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"shopnotify/internal/model"
	"shopnotify/internal/repository"
	"shopnotify/pkg/async"
	"shopnotify/pkg/logger"
)

const (
	// SuccessStatusCode 消息服务商表示投递成功的状态码
	SuccessStatusCode = "4000"

	pendingStoresKey    = "delivery:pending:stores"
	pendingKeyPrefix    = "delivery:pending:"
	authFailurePrefix   = "store:auth-failures:"
	authFailureWindow   = 24 * time.Hour
	integrationDisabled = "스토어 인증이 반복적으로 실패했습니다"
)

// DeliveryCallback 消息服务商的投递状态回调
type DeliveryCallback struct {
	EventHistoryID string    `json:"eventHistoryId"`
	StatusCode     string    `json:"statusCode"`
	MessageID      string    `json:"messageId"`
	Message        string    `json:"message"`
	ProcessedAt    time.Time `json:"processedAt"`
}

// CallbackOutcome 单个回调的处理结果
type CallbackOutcome struct {
	EventHistoryID string                   `json:"eventHistoryId"`
	Status         model.EventHistoryStatus `json:"status"`
	Ignored        bool                     `json:"ignored"`

	// 需要通知店铺完成发货时填写
	StoreID        int64  `json:"storeId,omitempty"`
	ProductOrderID string `json:"productOrderId,omitempty"`
}

// DeliveryReconciler 投递状态对账服务
type DeliveryReconciler struct {
	tx               repository.Transactor
	histories        repository.EventHistoryRepository
	events           repository.EventRepository
	orders           repository.OrderRepository
	stores           repository.StoreRepository
	workspaces       repository.WorkspaceRepository
	contents         *ContentAllocator
	commerce         CommerceClient
	notifier         Notifier
	redis            redis.UniversalClient
	authFailureLimit int64
	concurrency      int
	logger           *logger.Logger
}

// NewDeliveryReconciler 创建投递状态对账服务
func NewDeliveryReconciler(
	tx repository.Transactor,
	histories repository.EventHistoryRepository,
	events repository.EventRepository,
	orders repository.OrderRepository,
	stores repository.StoreRepository,
	workspaces repository.WorkspaceRepository,
	contents *ContentAllocator,
	commerce CommerceClient,
	notifier Notifier,
	redisClient redis.UniversalClient,
	authFailureLimit int,
	concurrency int,
	logger *logger.Logger,
) *DeliveryReconciler {
	return &DeliveryReconciler{
		tx:               tx,
		histories:        histories,
		events:           events,
		orders:           orders,
		stores:           stores,
		workspaces:       workspaces,
		contents:         contents,
		commerce:         commerce,
		notifier:         notifier,
		redis:            redisClient,
		authFailureLimit: int64(authFailureLimit),
		concurrency:      concurrency,
		logger:           logger,
	}
}

// HandleCallbacks 处理一批回调，之后按店铺合并调用发货完成接口
func (s *DeliveryReconciler) HandleCallbacks(ctx context.Context, callbacks []DeliveryCallback) []async.Result[*CallbackOutcome] {
	results := async.SettleAll(ctx, callbacks, s.concurrency, s.handleOne)

	completions := make(map[int64][]string)
	seen := make(map[string]bool)
	failed := 0
	for _, res := range results {
		if !res.OK() {
			failed++
			s.logger.Error("处理投递回调失败", "event_history_id", callbacks[res.Index].EventHistoryID, "error", res.Err)
			continue
		}
		out := res.Value
		if out.StoreID == 0 || out.ProductOrderID == "" {
			continue
		}
		key := strconv.FormatInt(out.StoreID, 10) + "/" + out.ProductOrderID
		if seen[key] {
			continue
		}
		seen[key] = true
		completions[out.StoreID] = append(completions[out.StoreID], out.ProductOrderID)
	}

	s.logger.Info("投递回调处理完成", "total", len(callbacks), "failed", failed, "stores", len(completions))

	for _, storeID := range sortedKeys(completions) {
		if err := s.completeDelivery(ctx, storeID, completions[storeID]); err != nil {
			s.park(ctx, storeID, completions[storeID])
		}
	}
	return results
}

func (s *DeliveryReconciler) handleOne(ctx context.Context, cb DeliveryCallback) (*CallbackOutcome, error) {
	if cb.EventHistoryID == "" {
		return nil, &ValidationError{Field: "eventHistoryId"}
	}
	out := &CallbackOutcome{EventHistoryID: cb.EventHistoryID}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		history, err := s.histories.GetForUpdate(ctx, cb.EventHistoryID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEventHistoryNotFound
		}
		if err != nil {
			return fmt.Errorf("获取事件记录失败: %w", err)
		}
		if history.Status.Terminal() {
			out.Status = history.Status
			out.Ignored = true
			return nil
		}

		processedAt := cb.ProcessedAt
		if processedAt.IsZero() {
			processedAt = time.Now().UTC()
		}
		update := repository.DeliveryUpdate{
			Status:             model.EventHistorySuccess,
			ProviderStatusCode: cb.StatusCode,
			ExternalMessageID:  cb.MessageID,
			Message:            cb.Message,
			ProcessedAt:        processedAt,
		}
		if cb.StatusCode != SuccessStatusCode {
			update.Status = model.EventHistoryFailed
		}
		if err := s.histories.UpdateDelivery(ctx, history.ID, update); err != nil {
			return fmt.Errorf("更新事件记录失败: %w", err)
		}
		out.Status = update.Status

		if update.Status == model.EventHistoryFailed {
			if history.ContentID.Valid {
				if err := s.contents.Release(ctx, []int64{history.ContentID.Int64}); err != nil {
					return fmt.Errorf("释放内容失败: %w", err)
				}
			}
			return nil
		}

		// 发货完成只是附带动作，查询失败不影响投递状态落库
		if order := s.completionTarget(ctx, history); order != nil {
			out.StoreID = order.StoreID
			out.ProductOrderID = order.ProductOrderID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// completionTarget 返回需要通知发货完成的订单，不需要或无法确定时返回 nil
func (s *DeliveryReconciler) completionTarget(ctx context.Context, history *model.EventHistory) *model.Order {
	ev, err := s.events.GetByID(ctx, history.EventID)
	if err != nil {
		s.logger.Error("获取事件失败，跳过发货完成", "event_history_id", history.ID, "event_id", history.EventID, "error", err)
		return nil
	}
	if !ev.Message.CompleteDelivery {
		return nil
	}
	order, err := s.orders.GetByID(ctx, history.OrderID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("订单不存在或已删除，跳过发货完成", "event_history_id", history.ID, "order_id", history.OrderID)
		return nil
	}
	if err != nil {
		s.logger.Error("获取订单失败，跳过发货完成", "event_history_id", history.ID, "order_id", history.OrderID, "error", err)
		return nil
	}
	return order
}

// completeDelivery 调用店铺平台发货完成接口
func (s *DeliveryReconciler) completeDelivery(ctx context.Context, storeID int64, productOrderIDs []string) error {
	store, err := s.stores.GetByID(ctx, storeID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("店铺不存在，跳过发货完成", "store_id", storeID)
		return nil
	}
	if err != nil {
		s.logger.Error("获取店铺失败", "store_id", storeID, "error", err)
		return err
	}
	if !store.Enabled {
		s.logger.Warn("店铺对接已停用，跳过发货完成", "store_id", storeID)
		return nil
	}

	err = s.commerce.CompleteDelivery(ctx, store.Credentials(), productOrderIDs)
	if err == nil {
		if derr := s.redis.Del(ctx, authFailurePrefix+strconv.FormatInt(storeID, 10)).Err(); derr != nil {
			s.logger.Warn("重置认证失败次数出错", "store_id", storeID, "error", derr)
		}
		s.logger.Info("发货完成已通知店铺", "store_id", storeID, "count", len(productOrderIDs))
		return nil
	}

	s.logger.Error("通知店铺发货完成失败",
		"store_id", storeID,
		"application_id", store.ApplicationID,
		"count", len(productOrderIDs),
		"error", err)
	if errors.Is(err, ErrCommerceAuth) {
		s.recordAuthFailure(ctx, store)
	}
	return err
}

// recordAuthFailure 累计认证失败次数，达到上限时停用店铺并通知所有者
func (s *DeliveryReconciler) recordAuthFailure(ctx context.Context, store *model.Store) {
	key := authFailurePrefix + strconv.FormatInt(store.ID, 10)
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		s.logger.Error("记录认证失败次数出错", "store_id", store.ID, "error", err)
		return
	}
	// 固定窗口：只在窗口内第一次失败时设置过期时间
	if count == 1 {
		if err := s.redis.Expire(ctx, key, authFailureWindow).Err(); err != nil {
			s.logger.Error("设置认证失败计数过期时间出错", "store_id", store.ID, "error", err)
		}
	}
	if count < s.authFailureLimit {
		return
	}

	if err := s.stores.Disable(ctx, store.ID); err != nil {
		s.logger.Error("停用店铺对接失败", "store_id", store.ID, "error", err)
		return
	}
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("重置认证失败次数出错", "store_id", store.ID, "error", err)
	}
	s.logger.Warn("店铺对接已停用", "store_id", store.ID, "auth_failures", count)

	owners, err := s.workspaces.OwnerEmails(ctx, store.WorkspaceID)
	if err != nil {
		s.logger.Error("获取工作区所有者失败", "workspace_id", store.WorkspaceID, "error", err)
		return
	}
	if len(owners) == 0 {
		return
	}
	if err := s.notifier.NotifyIntegrationDisabled(ctx, owners, store.Name, integrationDisabled); err != nil {
		s.logger.Error("通知工作区所有者失败", "workspace_id", store.WorkspaceID, "error", err)
	}
}

// park 暂存失败的发货完成请求，等待定时重试
func (s *DeliveryReconciler) park(ctx context.Context, storeID int64, productOrderIDs []string) {
	members := make([]interface{}, len(productOrderIDs))
	for i, id := range productOrderIDs {
		members[i] = id
	}
	storeKey := strconv.FormatInt(storeID, 10)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, pendingKeyPrefix+storeKey, members...)
		pipe.SAdd(ctx, pendingStoresKey, storeKey)
		return nil
	})
	if err != nil {
		s.logger.Error("暂存发货完成请求失败", "store_id", storeID, "error", err)
	}
}

// RetryPendingCompletions 重试暂存的发货完成请求，返回成功的店铺数
func (s *DeliveryReconciler) RetryPendingCompletions(ctx context.Context) (int, error) {
	storeKeys, err := s.redis.SMembers(ctx, pendingStoresKey).Result()
	if err != nil {
		return 0, fmt.Errorf("读取待重试店铺失败: %w", err)
	}
	sort.Strings(storeKeys)

	done := 0
	for _, storeKey := range storeKeys {
		storeID, err := strconv.ParseInt(storeKey, 10, 64)
		if err != nil {
			s.logger.Warn("丢弃无效的待重试店铺", "store_key", storeKey)
			if err := s.redis.SRem(ctx, pendingStoresKey, storeKey).Err(); err != nil {
				s.logger.Warn("移除待重试店铺失败", "store_key", storeKey, "error", err)
			}
			continue
		}
		ids, err := s.redis.SMembers(ctx, pendingKeyPrefix+storeKey).Result()
		if err != nil {
			s.logger.Error("读取待重试订单失败", "store_id", storeID, "error", err)
			continue
		}
		if len(ids) > 0 {
			sort.Strings(ids)
			if err := s.completeDelivery(ctx, storeID, ids); err != nil {
				continue
			}
			members := make([]interface{}, len(ids))
			for i, id := range ids {
				members[i] = id
			}
			if err := s.redis.SRem(ctx, pendingKeyPrefix+storeKey, members...).Err(); err != nil {
				s.logger.Error("移除已完成的待重试订单失败", "store_id", storeID, "error", err)
			}
		}
		if n, err := s.redis.SCard(ctx, pendingKeyPrefix+storeKey).Result(); err == nil && n == 0 {
			if err := s.redis.SRem(ctx, pendingStoresKey, storeKey).Err(); err != nil {
				s.logger.Warn("移除待重试店铺失败", "store_id", storeID, "error", err)
			}
		}
		done++
	}
	return done, nil
}

func sortedKeys(m map[int64][]string) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
