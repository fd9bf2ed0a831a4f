package repository

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/z26b/storefront/internal/backend"
	"github.com/z26b/storefront/internal/models"

	"github.com/ecodeclub/ekit/slice"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.OrderResult, error)
	List(ctx context.Context, filter OrderListFilter) ([]models.Order, int64, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	Cancel(ctx context.Context, id string) error
	ConfirmReceipt(ctx context.Context, id string) error
	Balance(ctx context.Context) (models.Money, error)
}

// RemoteOrderRepository 基于后端 REST 接口的实现
type RemoteOrderRepository struct {
	client *backend.Client
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(client *backend.Client) *RemoteOrderRepository {
	return &RemoteOrderRepository{client: client}
}

// Create 以购物车选中项创建订单
func (r *RemoteOrderRepository) Create(ctx context.Context, input CreateOrderInput) (*models.OrderResult, error) {
	var w wireCreateOrderResult
	if err := r.client.Post(ctx, "/order/create", input, &w); err != nil {
		return nil, err
	}
	return w.toModel(), nil
}

// List 分页查询订单，status 为空时查询全部
func (r *RemoteOrderRepository) List(ctx context.Context, filter OrderListFilter) ([]models.Order, int64, error) {
	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(pageSize))
	if status := strings.TrimSpace(filter.Status); status != "" {
		query.Set("status", status)
	}
	var w wireOrderPage
	if err := r.client.Get(ctx, "/order/list", &w, backend.WithQuery(query)); err != nil {
		return nil, 0, err
	}
	orders := slice.Map(w.Records, func(_ int, src wireOrder) models.Order {
		return src.toModel()
	})
	return orders, int64(w.Total), nil
}

// GetByID 获取订单详情
func (r *RemoteOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var w *wireOrder
	if err := r.client.Get(ctx, "/order/"+url.PathEscape(strings.TrimSpace(id)), &w); err != nil {
		return nil, err
	}
	if w == nil {
		return nil, nil
	}
	order := w.toModel()
	return &order, nil
}

// Cancel 取消订单
func (r *RemoteOrderRepository) Cancel(ctx context.Context, id string) error {
	return r.client.Put(ctx, "/order/cancel/"+url.PathEscape(strings.TrimSpace(id)), nil, nil)
}

// ConfirmReceipt 确认收货
func (r *RemoteOrderRepository) ConfirmReceipt(ctx context.Context, id string) error {
	return r.client.Post(ctx, "/order/confirm/"+url.PathEscape(strings.TrimSpace(id)), nil, nil)
}

// Balance 查询账户余额
func (r *RemoteOrderRepository) Balance(ctx context.Context) (models.Money, error) {
	var w wireBalance
	if err := r.client.Get(ctx, "/user/balance", &w); err != nil {
		return models.Money{}, err
	}
	return w.Balance, nil
}
