package service

import (
	"context"
	"strings"
	"time"

	"github.com/z26b/storefront/internal/apperr"
	"github.com/z26b/storefront/internal/backend"
	"github.com/z26b/storefront/internal/logger"
	"github.com/z26b/storefront/internal/models"
	"github.com/z26b/storefront/internal/ratelimit"
	"github.com/z26b/storefront/internal/repository"
	"github.com/z26b/storefront/internal/security"

	"golang.org/x/sync/errgroup"
)

const defaultResolveConcurrency = 8

// CartServiceOptions 购物车服务参数
type CartServiceOptions struct {
	MaxQuantity        int
	ResolveConcurrency int
	UpdateDebounce     time.Duration
	// AddGuard 加购冷却守卫，nil 表示不限制
	AddGuard ratelimit.Guard
}

// CartService 购物车服务
type CartService struct {
	cartRepo    repository.CartRepository
	skuRepo     repository.SkuRepository
	images      *ImageResolver
	addGuard    ratelimit.Guard
	coalescer   *ratelimit.Coalescer
	maxQuantity int
	concurrency int
	onSyncFail  func(ctx context.Context)
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, skuRepo repository.SkuRepository, images *ImageResolver, opts CartServiceOptions) *CartService {
	s := &CartService{
		cartRepo:    cartRepo,
		skuRepo:     skuRepo,
		images:      images,
		addGuard:    opts.AddGuard,
		maxQuantity: opts.MaxQuantity,
		concurrency: opts.ResolveConcurrency,
	}
	if s.maxQuantity <= 0 {
		s.maxQuantity = security.DefaultMaxQuantity
	}
	if s.concurrency <= 0 {
		s.concurrency = defaultResolveConcurrency
	}
	s.coalescer = ratelimit.NewCoalescer(opts.UpdateDebounce, s.handleCoalescedFailure)
	return s
}

// OnSyncFailure 注册异步同步失败回调（用于让本地快照失效）
func (s *CartService) OnSyncFailure(fn func(ctx context.Context)) {
	s.onSyncFail = fn
}

// MaxQuantity 单项数量上限
func (s *CartService) MaxQuantity() int {
	return s.maxQuantity
}

// FetchItems 获取购物车并补全规格信息，无法补全的项跳过，顺序与远端一致
func (s *CartService) FetchItems(ctx context.Context) ([]models.CartItem, error) {
	items, err := s.cartRepo.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	log := logger.ForSession(backend.SessionKey(ctx))

	resolved := make([]*models.CartItem, len(items))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range items {
		item := items[i]
		if item.Sku.IsComplete() {
			s.images.ResolveSku(item.Sku)
			resolved[i] = &item
			continue
		}
		skuID := item.SkuID
		if skuID == "" && item.Sku != nil {
			skuID = item.Sku.ID
		}
		if strings.TrimSpace(skuID) == "" {
			log.Warnw("cart_item_sku_missing", "cart_item_id", item.ID)
			continue
		}
		idx := i
		g.Go(func() error {
			sku, err := s.skuRepo.GetByID(ctx, skuID)
			if err != nil || sku == nil {
				log.Warnw("cart_sku_resolve_failed", "cart_item_id", item.ID, "sku_id", skuID, "error", err)
				return nil
			}
			s.images.ResolveSku(sku)
			item.Sku = sku
			item.SkuID = sku.ID
			resolved[idx] = &item
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.CartItem, 0, len(items))
	for _, item := range resolved {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out, nil
}

// ValidateQuantity 校验购物车数量
func (s *CartService) ValidateQuantity(quantity int) error {
	return security.ValidateQuantity(quantity, s.maxQuantity)
}

// AddItem 加入购物车，冷却期内重复加购直接拒绝
func (s *CartService) AddItem(ctx context.Context, skuID string, quantity int) (*models.CartItem, error) {
	skuID = strings.TrimSpace(skuID)
	if skuID == "" {
		return nil, apperr.Validation(apperr.MsgNoSelection)
	}
	if err := s.ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	if s.addGuard != nil {
		allowed, _ := s.addGuard.Allow(ctx, "cart:add:"+backend.SessionKey(ctx))
		if !allowed {
			return nil, apperr.RateLimited(apperr.MsgTooFrequent)
		}
	}
	item, err := s.cartRepo.Add(ctx, skuID, quantity)
	if err != nil {
		return nil, err
	}
	if item == nil {
		item = &models.CartItem{SkuID: skuID, Quantity: quantity}
	}
	return item, nil
}

// FindBySku 在远端购物车中查找规格对应的购物车项
func (s *CartService) FindBySku(ctx context.Context, skuID string) (*models.CartItem, error) {
	items, err := s.cartRepo.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		item := items[i]
		if item.SkuID == skuID || (item.Sku != nil && item.Sku.ID == skuID) {
			return &item, nil
		}
	}
	return nil, nil
}

// UpdateQuantity 更新数量：同一购物车项在防抖窗口内只提交最后一次
func (s *CartService) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return apperr.Validation("购物车商品不存在")
	}
	if err := s.ValidateQuantity(quantity); err != nil {
		return err
	}
	key := quantityKeyPrefix(ctx) + itemID
	s.coalescer.Submit(ctx, key, func(ctx context.Context) error {
		return s.cartRepo.Update(ctx, itemID, repository.CartItemPatch{Quantity: &quantity})
	})
	return nil
}

// UpdateSelected 更新选中状态（不防抖）
func (s *CartService) UpdateSelected(ctx context.Context, itemID string, selected bool) error {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return apperr.Validation("购物车商品不存在")
	}
	return s.cartRepo.Update(ctx, itemID, repository.CartItemPatch{IsSelected: &selected})
}

// DeleteItem 删除购物车项
func (s *CartService) DeleteItem(ctx context.Context, itemID string) error {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return apperr.Validation("购物车商品不存在")
	}
	return s.cartRepo.Remove(ctx, itemID)
}

// Flush 立即提交所有待提交的数量更新
func (s *CartService) Flush() {
	s.coalescer.Flush()
}

// FlushSession 立即提交当前会话待提交的数量更新
func (s *CartService) FlushSession(ctx context.Context) {
	prefix := quantityKeyPrefix(ctx)
	s.coalescer.FlushMatching(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

func quantityKeyPrefix(ctx context.Context) string {
	return "cart:qty:" + backend.SessionKey(ctx) + ":"
}

func (s *CartService) handleCoalescedFailure(ctx context.Context, key string, err error) {
	logger.ForSession(backend.SessionKey(ctx)).Warnw("cart_quantity_sync_failed", "key", key, "error", err)
	if s.onSyncFail != nil {
		s.onSyncFail(ctx)
	}
}
