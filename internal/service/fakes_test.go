package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/z26b/storefront/internal/apperr"
	"github.com/z26b/storefront/internal/models"
	"github.com/z26b/storefront/internal/repository"
)

// callLog 记录跨仓库的远端调用顺序
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// writes 只保留写操作（加购、更新、删除、下单）
func (l *callLog) writes() []string {
	out := make([]string, 0)
	for _, call := range l.all() {
		switch {
		case len(call) >= 4 && call[:4] == "list", len(call) >= 3 && call[:3] == "get":
			continue
		}
		out = append(out, call)
	}
	return out
}

func (l *callLog) count(prefix string) int {
	n := 0
	for _, call := range l.all() {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

type fakeCartRepo struct {
	log       *callLog
	mu        sync.Mutex
	items     []models.CartItem
	listErr   error
	updateErr error
	removeErr error
	addResult *models.CartItem
	// addCreates 加购后把 addResult 放入列表
	addCreates bool
	// qtyStarted 数量更新开始时通知，qtyGate 非空时数量更新在写入前阻塞
	qtyStarted chan struct{}
	qtyGate    chan struct{}
}

func (r *fakeCartRepo) ListItems(context.Context) ([]models.CartItem, error) {
	r.log.add("list:cart")
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.CartItem, len(r.items))
	for i, item := range r.items {
		if item.Sku != nil {
			sku := *item.Sku
			item.Sku = &sku
		}
		out[i] = item
	}
	return out, nil
}

func (r *fakeCartRepo) Add(_ context.Context, skuID string, quantity int) (*models.CartItem, error) {
	r.log.add(fmt.Sprintf("add:%s:%d", skuID, quantity))
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addCreates && r.addResult != nil {
		r.items = append(r.items, *r.addResult)
		return nil, nil
	}
	return r.addResult, nil
}

func (r *fakeCartRepo) Update(_ context.Context, itemID string, patch repository.CartItemPatch) error {
	if patch.Quantity != nil {
		r.log.add(fmt.Sprintf("update:%s:qty=%d", itemID, *patch.Quantity))
	}
	if patch.IsSelected != nil {
		r.log.add(fmt.Sprintf("update:%s:selected=%t", itemID, *patch.IsSelected))
	}
	if patch.Quantity != nil && r.qtyStarted != nil {
		select {
		case r.qtyStarted <- struct{}{}:
		default:
		}
	}
	if patch.Quantity != nil && r.qtyGate != nil {
		<-r.qtyGate
	}
	if r.updateErr != nil {
		return r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID != itemID {
			continue
		}
		if patch.Quantity != nil {
			r.items[i].Quantity = *patch.Quantity
		}
		if patch.IsSelected != nil {
			r.items[i].IsSelected = *patch.IsSelected
		}
	}
	return nil
}

func (r *fakeCartRepo) Remove(_ context.Context, itemID string) error {
	r.log.add("remove:" + itemID)
	return r.removeErr
}

type fakeSkuRepo struct {
	log  *callLog
	skus map[string]*models.Sku
	errs map[string]error
}

func (r *fakeSkuRepo) GetByID(_ context.Context, skuID string) (*models.Sku, error) {
	r.log.add("get:sku:" + skuID)
	if err := r.errs[skuID]; err != nil {
		return nil, err
	}
	sku, ok := r.skus[skuID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	copied := *sku
	return &copied, nil
}

func (r *fakeSkuRepo) ListBySpu(_ context.Context, spuID string) ([]models.Sku, error) {
	r.log.add("list:sku:" + spuID)
	out := make([]models.Sku, 0)
	for _, sku := range r.skus {
		if sku.SpuID == spuID {
			out = append(out, *sku)
		}
	}
	return out, nil
}

type fakeAddressRepo struct {
	log       *callLog
	addresses []models.Address
	listErr   error
	created   []models.Address
}

func (r *fakeAddressRepo) List(context.Context) ([]models.Address, error) {
	r.log.add("list:address")
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]models.Address(nil), r.addresses...), nil
}

func (r *fakeAddressRepo) GetByID(_ context.Context, id string) (*models.Address, error) {
	r.log.add("get:address:" + id)
	for _, addr := range r.addresses {
		if addr.ID == id {
			copied := addr
			return &copied, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (r *fakeAddressRepo) Create(_ context.Context, addr *models.Address) (*models.Address, error) {
	r.log.add("create:address")
	copied := *addr
	copied.ID = fmt.Sprintf("addr-%d", len(r.created)+1)
	r.created = append(r.created, copied)
	return &copied, nil
}

func (r *fakeAddressRepo) Update(_ context.Context, addr *models.Address) (*models.Address, error) {
	r.log.add("update:address:" + addr.ID)
	copied := *addr
	return &copied, nil
}

func (r *fakeAddressRepo) Delete(_ context.Context, id string) error {
	r.log.add("delete:address:" + id)
	return nil
}

type fakeOrderRepo struct {
	log       *callLog
	result    *models.OrderResult
	createErr error
	inputs    []repository.CreateOrderInput
	totals    map[string]int64
	orders    map[string]*models.Order
}

func (r *fakeOrderRepo) Create(_ context.Context, input repository.CreateOrderInput) (*models.OrderResult, error) {
	r.log.add("create:order")
	r.inputs = append(r.inputs, input)
	if r.createErr != nil {
		return nil, r.createErr
	}
	if r.result == nil {
		return &models.OrderResult{OrderID: "order-1"}, nil
	}
	copied := *r.result
	return &copied, nil
}

func (r *fakeOrderRepo) List(_ context.Context, filter repository.OrderListFilter) ([]models.Order, int64, error) {
	r.log.add("list:order:" + filter.Status)
	return []models.Order{}, r.totals[filter.Status], nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.log.add("get:order:" + id)
	return r.orders[id], nil
}

func (r *fakeOrderRepo) Cancel(_ context.Context, id string) error {
	r.log.add("cancel:order:" + id)
	return nil
}

func (r *fakeOrderRepo) ConfirmReceipt(_ context.Context, id string) error {
	r.log.add("confirm:order:" + id)
	return nil
}

func (r *fakeOrderRepo) Balance(context.Context) (models.Money, error) {
	r.log.add("get:balance")
	return models.NewMoneyFromMinor(1250), nil
}

type countingInvalidator struct {
	mu    sync.Mutex
	count int
}

func (i *countingInvalidator) InvalidateCart(context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.count++
	return nil
}

func (i *countingInvalidator) Count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.count
}

func newSku(id, name string, priceMinor int64) *models.Sku {
	return &models.Sku{
		ID:          id,
		SpuID:       "spu-" + id,
		Spu:         &models.Spu{ID: "spu-" + id, Name: name, CoverImage: "/cover/" + id + ".png"},
		Price:       models.NewMoneyFromMinor(priceMinor),
		Description: name + "规格",
	}
}
