package constants

// 订单状态常量（与远端保持一致）
const (
	OrderStatusToPay     = "TO_PAY"
	OrderStatusToSend    = "TO_SEND"
	OrderStatusToReceive = "TO_RECEIVE"
	OrderStatusFinished  = "FINISHED"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCanceled  = "CANCELED"
)

// OrderStatusLabels 订单状态展示文案
var OrderStatusLabels = map[string]string{
	OrderStatusToPay:     "待付款",
	OrderStatusToSend:    "待发货",
	OrderStatusToReceive: "待收货",
	OrderStatusFinished:  "已完成",
	OrderStatusCompleted: "已完成",
	OrderStatusCanceled:  "已取消",
}

// 结算模式
const (
	CheckoutModeCart   = "cart"
	CheckoutModeDirect = "direct"
)

// 支付方式
const (
	PaymentMethodBalance = "BALANCE"
	PaymentMethodDirect  = "DIRECT"
)

// 队列与任务
const (
	QueueDefault     = "default"
	QueueCritical    = "critical"
	TaskCartRefresh  = "cart:refresh"
	TaskOrderPlaced  = "order:placed"
	CartEventChannel = "cart:invalidated"
)

// 请求上下文键
const (
	ContextKeyRequestID = "request_id"
	ContextKeyIdentity  = "identity"
)
