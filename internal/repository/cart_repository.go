package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/z26b/storefront/internal/backend"
	"github.com/z26b/storefront/internal/logger"
	"github.com/z26b/storefront/internal/models"
)

// CartItemPatch 购物车项局部更新，nil 字段不提交
type CartItemPatch struct {
	Quantity   *int  `json:"quantity,omitempty"`
	IsSelected *bool `json:"isSelected,omitempty"`
}

// CartRepository 购物车数据访问接口
type CartRepository interface {
	ListItems(ctx context.Context) ([]models.CartItem, error)
	Add(ctx context.Context, skuID string, quantity int) (*models.CartItem, error)
	Update(ctx context.Context, itemID string, patch CartItemPatch) error
	Remove(ctx context.Context, itemID string) error
}

// RemoteCartRepository 基于后端 REST 接口的实现
type RemoteCartRepository struct {
	client *backend.Client
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(client *backend.Client) *RemoteCartRepository {
	return &RemoteCartRepository{client: client}
}

// ListItems 获取购物车原始列表（按店铺展开，保持远端顺序）
func (r *RemoteCartRepository) ListItems(ctx context.Context) ([]models.CartItem, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, "/cart/items", &raw); err != nil {
		return nil, err
	}
	wires, err := decodeCartItems(raw)
	if err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	items := make([]models.CartItem, 0, len(wires))
	for _, w := range wires {
		item, ok := w.toModel()
		if !ok {
			logger.Warnw("cart_item_missing_id", "sku_id", string(w.SkuID))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Add 加入购物车，远端未回传购物车项时返回 nil
func (r *RemoteCartRepository) Add(ctx context.Context, skuID string, quantity int) (*models.CartItem, error) {
	body := map[string]interface{}{
		"skuId":    strings.TrimSpace(skuID),
		"quantity": quantity,
	}
	var raw json.RawMessage
	if err := r.client.Post(ctx, "/cart/add", body, &raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}
	var w wireCartItem
	if err := json.Unmarshal(raw, &w); err != nil {
		logger.Warnw("cart_add_decode_failed", "sku_id", skuID, "error", err)
		return nil, nil
	}
	item, ok := w.toModel()
	if !ok {
		return nil, nil
	}
	if item.SkuID == "" {
		item.SkuID = strings.TrimSpace(skuID)
	}
	return &item, nil
}

// Update 更新数量或选中状态
func (r *RemoteCartRepository) Update(ctx context.Context, itemID string, patch CartItemPatch) error {
	return r.client.Put(ctx, "/cart/update/"+url.PathEscape(strings.TrimSpace(itemID)), patch, nil)
}

// Remove 删除购物车项
func (r *RemoteCartRepository) Remove(ctx context.Context, itemID string) error {
	return r.client.Delete(ctx, "/cart/remove/"+url.PathEscape(strings.TrimSpace(itemID)), nil)
}
