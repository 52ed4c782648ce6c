package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"shopnotify/internal/model"
	"shopnotify/internal/repository"
	"shopnotify/pkg/async"
	"shopnotify/pkg/logger"
)

const (
	// VarEventHistoryID 始终存在的保留变量
	VarEventHistoryID = "eventHistoryId"

	orderAtLayout = "2006-01-02 15:04"
	emptyValue    = "-"
)

var (
	tokenPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)
	kst          = time.FixedZone("KST", 9*60*60)
)

// RenderedMessage 渲染结果：原样的模板内容和替换后的变量
type RenderedMessage struct {
	Content   string
	Variables model.Variables
	Buttons   model.Buttons
}

// Render 用 bag 替换模板变量值中的 {token}，未知 token 原样保留
func Render(msg *model.Message, bag map[string]string) RenderedMessage {
	out := RenderedMessage{
		Content:   msg.Content,
		Variables: make(model.Variables, len(msg.Variables)+1),
	}
	for key, value := range msg.Variables {
		out.Variables[key] = substitute(value, bag)
	}
	if _, ok := out.Variables[VarEventHistoryID]; !ok {
		out.Variables[VarEventHistoryID] = bag[VarEventHistoryID]
	}
	for _, btn := range msg.Buttons {
		btn.URLMobile = substitute(btn.URLMobile, bag)
		btn.URLPC = substitute(btn.URLPC, bag)
		out.Buttons = append(out.Buttons, btn)
	}
	return out
}

func substitute(s string, bag map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		if v, ok := bag[token[1:len(token)-1]]; ok {
			return v
		}
		return token
	})
}

// RenderInput 构建变量所需的数据
type RenderInput struct {
	History *model.EventHistory
	Order   *model.Order
	Store   *model.Store
	Product *model.Product
	Variant *model.ProductVariant
	Content *model.Content
}

// BuildVariables 构建替换表
func BuildVariables(in RenderInput, contentBaseURL string) map[string]string {
	o := in.Order
	bag := map[string]string{
		"id":                     strconv.FormatInt(o.ID, 10),
		"eventId":                strconv.FormatInt(in.History.EventID, 10),
		"productOrderId":         o.ProductOrderID,
		"orderId":                o.OrderID,
		"status":                 string(o.Status),
		"ordererName":            o.OrdererName,
		"ordererPhone":           o.OrdererPhone,
		"receiverName":           o.ReceiverName,
		"receiverPhone":          o.ReceiverPhone,
		"price":                  o.Price.String(),
		"quantity":               strconv.Itoa(o.Quantity),
		"orderAt":                o.OrderAt.In(kst).Format(orderAtLayout),
		"deliveryAddress":        o.DeliveryAddress,
		"deliveryMessage":        o.DeliveryMessage,
		"deliveryCompany":        o.DeliveryCompany,
		"deliveryTrackingNumber": o.DeliveryTrackingNumber,
		"storeName":              emptyValue,
		"productName":            emptyValue,
		"productVariantName":     emptyValue,
		VarEventHistoryID:        in.History.ID,
	}
	if in.Store != nil && in.Store.Name != "" {
		bag["storeName"] = in.Store.Name
	}
	if in.Product != nil && in.Product.Name != "" {
		bag["productName"] = in.Product.Name
	}
	if in.Variant != nil && in.Variant.Name != "" {
		bag["productVariantName"] = in.Variant.Name
	}

	if c := in.Content; c != nil {
		bag["contentText"] = c.Text.String
		bag["contentUrl"] = strings.TrimRight(contentBaseURL, "/") + "/contents/" + in.History.ID
		bag["expiredAt"] = emptyValue
		if in.History.ExpiredAt.Valid {
			bag["expiredAt"] = in.History.ExpiredAt.Time.In(kst).Format(orderAtLayout)
		}
		bag["downloadLimit"] = emptyValue
		if in.History.DownloadLimit.Valid {
			bag["downloadLimit"] = strconv.FormatInt(in.History.DownloadLimit.Int64, 10)
		}
	}
	return bag
}

// RenderedHistory 渲染完成、等待投递的记录
type RenderedHistory struct {
	History      *model.EventHistory
	Order        *model.Order
	TemplateCode string
	Message      RenderedMessage
}

// MessageRenderer 消息变量渲染服务
type MessageRenderer struct {
	events         repository.EventRepository
	orders         repository.OrderRepository
	stores         repository.StoreRepository
	products       repository.ProductRepository
	contents       repository.ContentRepository
	histories      repository.EventHistoryRepository
	contentBaseURL string
	concurrency    int
	logger         *logger.Logger
}

// NewMessageRenderer 创建消息渲染服务
func NewMessageRenderer(
	events repository.EventRepository,
	orders repository.OrderRepository,
	stores repository.StoreRepository,
	products repository.ProductRepository,
	contents repository.ContentRepository,
	histories repository.EventHistoryRepository,
	contentBaseURL string,
	concurrency int,
	logger *logger.Logger,
) *MessageRenderer {
	return &MessageRenderer{
		events:         events,
		orders:         orders,
		stores:         stores,
		products:       products,
		contents:       contents,
		histories:      histories,
		contentBaseURL: contentBaseURL,
		concurrency:    concurrency,
		logger:         logger,
	}
}

// RenderBatch 渲染并保存消息，状态 CONTENT_READY -> READY
// 单条失败只记录日志，不影响其他记录
func (r *MessageRenderer) RenderBatch(ctx context.Context, histories []*model.EventHistory) []RenderedHistory {
	results := async.SettleAll(ctx, histories, r.concurrency, r.renderOne)
	rendered, failed := async.Partition(results)
	for _, f := range failed {
		r.logger.Error("消息渲染失败", "event_history_id", histories[f.Index].ID, "error", f.Err)
	}
	if len(failed) > 0 {
		r.logger.Warn("部分消息渲染失败", "total", len(histories), "failed", len(failed))
	}
	return rendered
}

func (r *MessageRenderer) renderOne(ctx context.Context, history *model.EventHistory) (RenderedHistory, error) {
	if history.Status != model.EventHistoryContentReady {
		return RenderedHistory{}, fmt.Errorf("unexpected status %s", history.Status)
	}

	ev, err := r.events.GetByID(ctx, history.EventID)
	if err != nil {
		return RenderedHistory{}, fmt.Errorf("获取事件失败: %w", err)
	}
	in, err := r.loadInput(ctx, history)
	if err != nil {
		return RenderedHistory{}, err
	}

	msg := Render(&ev.Message, BuildVariables(in, r.contentBaseURL))
	if err := r.histories.SaveRendered(ctx, history.ID, msg.Content, msg.Variables, model.EventHistoryReady); err != nil {
		return RenderedHistory{}, fmt.Errorf("保存渲染结果失败: %w", err)
	}
	history.Status = model.EventHistoryReady
	history.MessageVariables = msg.Variables

	return RenderedHistory{
		History:      history,
		Order:        in.Order,
		TemplateCode: ev.Message.TemplateCode,
		Message:      msg,
	}, nil
}

func (r *MessageRenderer) loadInput(ctx context.Context, history *model.EventHistory) (RenderInput, error) {
	in := RenderInput{History: history}
	var err error
	if in.Order, err = r.orders.GetByID(ctx, history.OrderID); err != nil {
		return in, fmt.Errorf("获取订单失败: %w", err)
	}
	if in.Store, err = r.stores.GetByID(ctx, in.Order.StoreID); err != nil {
		return in, fmt.Errorf("获取店铺失败: %w", err)
	}
	if in.Product, err = r.products.GetByID(ctx, in.Order.ProductID); err != nil {
		return in, fmt.Errorf("获取商品失败: %w", err)
	}
	if in.Order.ProductVariantID.Valid {
		if in.Variant, err = r.products.GetVariantByID(ctx, in.Order.ProductVariantID.Int64); err != nil {
			return in, fmt.Errorf("获取商品规格失败: %w", err)
		}
	}
	if history.ContentID.Valid {
		if in.Content, err = r.contents.GetByID(ctx, history.ContentID.Int64); err != nil {
			return in, fmt.Errorf("获取内容失败: %w", err)
		}
	}
	return in, nil
}
