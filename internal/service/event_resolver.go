package service

import (
	"context"
	"database/sql"
	"fmt"

	"shopnotify/internal/model"
	"shopnotify/internal/repository"
)

// EventResolver 根据商品、规格和订单状态查找适用的事件
type EventResolver struct {
	events repository.EventRepository
}

// NewEventResolver 创建事件解析器
func NewEventResolver(events repository.EventRepository) *EventResolver {
	return &EventResolver{events: events}
}

// FindEvents 返回适用于该订单状态的全部事件
func (r *EventResolver) FindEvents(ctx context.Context, workspaceID, productID int64, variantID sql.NullInt64, status model.OrderStatus) ([]model.Event, error) {
	candidates, err := r.events.FindCandidates(ctx, workspaceID, productID, status)
	if err != nil {
		return nil, fmt.Errorf("查询事件失败: %w", err)
	}
	return MatchEvents(candidates, variantID), nil
}

// MatchEvents 规格匹配：绑定了该规格的事件，或未绑定任何规格的事件
// 同时排除只读消息和只读内容组
func MatchEvents(candidates []model.Event, variantID sql.NullInt64) []model.Event {
	matched := make([]model.Event, 0, len(candidates))
	for _, ev := range candidates {
		if !ev.Enabled || ev.DeletedAt.Valid || ev.Message.Readonly {
			continue
		}
		if ev.ContentGroup != nil && ev.ContentGroup.Readonly {
			continue
		}
		if ev.ProductVariantID.Valid {
			if !variantID.Valid || ev.ProductVariantID.Int64 != variantID.Int64 {
				continue
			}
		}
		matched = append(matched, ev)
	}
	return matched
}
