package service

import (
	"context"
	"errors"

	"shopnotify/internal/model"
)

// ErrCommerceAuth 店铺平台认证失败，由 CommerceClient 实现包装返回
var ErrCommerceAuth = errors.New("commerce platform authentication failed")

// CommerceClient 店铺平台客户端
type CommerceClient interface {
	CompleteDelivery(ctx context.Context, creds model.StoreCredentials, productOrderIDs []string) error
}

// OutboundMessage 发往消息服务商的消息
type OutboundMessage struct {
	EventHistoryID string
	Receiver       string
	TemplateCode   string
	Content        string
	Variables      model.Variables
	Buttons        model.Buttons
}

// MessageDispatcher 消息服务商，投递结果通过回调异步返回
type MessageDispatcher interface {
	Send(ctx context.Context, msg OutboundMessage) error
}

// Locker 按 key 加互斥锁，返回解锁函数
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Notifier 通知工作区所有者
type Notifier interface {
	NotifyIntegrationDisabled(ctx context.Context, to []string, storeName, reason string) error
}
