package provider

import (
	"context"

	"shopnotify/internal/model"
	"shopnotify/internal/service"
	"shopnotify/pkg/logger"
)

// LoggingCommerceClient 只记录日志的店铺平台客户端
type LoggingCommerceClient struct {
	logger *logger.Logger
}

// NewLoggingCommerceClient 创建店铺平台客户端
func NewLoggingCommerceClient(logger *logger.Logger) *LoggingCommerceClient {
	return &LoggingCommerceClient{logger: logger}
}

// CompleteDelivery 记录发货完成请求
func (c *LoggingCommerceClient) CompleteDelivery(_ context.Context, creds model.StoreCredentials, productOrderIDs []string) error {
	c.logger.Info("发货完成请求",
		"store_id", creds.StoreID,
		"application_id", creds.ApplicationID,
		"product_order_ids", productOrderIDs)
	return nil
}

// LoggingDispatcher 只记录日志的消息服务商
type LoggingDispatcher struct {
	logger *logger.Logger
}

// NewLoggingDispatcher 创建消息服务商
func NewLoggingDispatcher(logger *logger.Logger) *LoggingDispatcher {
	return &LoggingDispatcher{logger: logger}
}

// Send 记录待发送的消息
func (d *LoggingDispatcher) Send(_ context.Context, msg service.OutboundMessage) error {
	d.logger.Info("发送消息",
		"event_history_id", msg.EventHistoryID,
		"template_code", msg.TemplateCode,
		"variables", len(msg.Variables))
	return nil
}

var (
	_ service.CommerceClient    = (*LoggingCommerceClient)(nil)
	_ service.MessageDispatcher = (*LoggingDispatcher)(nil)
)
