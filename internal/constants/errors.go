package constants

// 通用错误消息
const (
	// 参数相关错误
	ErrInvalidParams  = "参数错误"
	ErrInvalidFormat  = "格式错误"
	ErrInvalidRequest = "无效请求格式"
	ErrInvalidAmount  = "积分数量必须大于0"
	ErrEmptyBatch     = "批次不能为空"

	// 资源相关错误
	ErrStoreNotFound        = "店铺不存在"
	ErrWorkspaceNotFound    = "工作区不存在"
	ErrOrderNotFound        = "订单不存在"
	ErrEventHistoryNotFound = "事件记录不存在"

	// 业务错误
	ErrInsufficientCredit   = "积分不足"
	ErrNoContentAvailable   = "没有可用的内容"
	ErrReceiverPhoneMissing = "收件人手机号为空"
	ErrNoSubscription       = "no subscription found" // 固定文案，写入事件记录供下游匹配
	ErrTemplateUnparsed     = "无法解析模板审核标题"

	// 系统错误
	ErrInternalServer = "服务器内部错误"
	ErrQueueFull      = "任务队列已满，请稍后重试"
	ErrWorkerStopped  = "服务正在停止，请稍后重试"
)

// 成功消息
const (
	SuccessCreate   = "创建成功"
	SuccessUpdate   = "更新成功"
	SuccessGet      = "获取成功"
	SuccessAccepted = "已接收"
)
