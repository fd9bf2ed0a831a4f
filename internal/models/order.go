package models

import "time"

// OrderResult 下单结果
type OrderResult struct {
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	PaidAmount    Money  `json:"paid_amount"`
	RemainBalance Money  `json:"remain_balance"`
	PaymentMethod string `json:"payment_method"`
	// PaidAmountReported 远端是否返回了实付金额
	PaidAmountReported bool `json:"-"`
}

// Order 订单
type Order struct {
	ID            string      `json:"id"`
	Status        string      `json:"status"`
	StatusLabel   string      `json:"status_label"`
	TotalPrice    Money       `json:"total_price"`
	DiscountPrice Money       `json:"discount_price"`
	FinalPrice    Money       `json:"final_price"`
	Remarks       string      `json:"remarks"`
	DeliveryInfo  *Address    `json:"delivery_info,omitempty"`
	Items         []OrderItem `json:"items"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// OrderItem 订单商品
type OrderItem struct {
	ID       string    `json:"id"`
	SkuID    string    `json:"sku_id"`
	Quantity int       `json:"quantity"`
	Price    Money     `json:"price"`
	Goods    GoodsLine `json:"goods"`
}

// OrderStatusCounts 各状态订单数量
type OrderStatusCounts struct {
	Unpaid      int64 `json:"unpaid"`
	Undelivered int64 `json:"undelivered"`
	Unreceived  int64 `json:"unreceived"`
	Completed   int64 `json:"completed"`
	Canceled    int64 `json:"canceled"`
}
