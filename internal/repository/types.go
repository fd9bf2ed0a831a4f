package repository

// CreateOrderInput 下单参数
type CreateOrderInput struct {
	AddressID string `json:"addressId"`
	Remarks   string `json:"remarks"`
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page     int
	PageSize int
	Status   string
}

// CheckoutAttemptFilter 查询结算记录的过滤条件
type CheckoutAttemptFilter struct {
	Page       int
	PageSize   int
	SessionKey string
	State      string
}
