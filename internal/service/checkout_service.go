package service

import (
	"context"
	"errors"
	"strings"

	"github.com/z26b/storefront/internal/apperr"
	"github.com/z26b/storefront/internal/backend"
	"github.com/z26b/storefront/internal/constants"
	"github.com/z26b/storefront/internal/logger"
	"github.com/z26b/storefront/internal/models"
	"github.com/z26b/storefront/internal/repository"
	"github.com/z26b/storefront/internal/security"

	"golang.org/x/sync/errgroup"
)

// CheckoutRequest 结算请求，Mode 为 cart 时忽略 SkuID/Quantity
type CheckoutRequest struct {
	Mode     string
	SkuID    string
	Quantity int
}

// CheckoutPreview 结算页数据
type CheckoutPreview struct {
	Mode       string             `json:"mode"`
	GoodsList  []models.GoodsLine `json:"goods_list"`
	TotalPrice models.Money       `json:"total_price"`
	Address    *models.Address    `json:"address"`
	Items      []models.CartItem  `json:"-"`
	DirectSku  *models.Sku        `json:"-"`
	Quantity   int                `json:"-"`
}

// CheckoutService 结算聚合服务
type CheckoutService struct {
	cartRepo    repository.CartRepository
	skuRepo     repository.SkuRepository
	addressRepo repository.AddressRepository
	images      *ImageResolver
	maxQuantity int
	concurrency int
}

// NewCheckoutService 创建结算服务
func NewCheckoutService(cartRepo repository.CartRepository, skuRepo repository.SkuRepository, addressRepo repository.AddressRepository, images *ImageResolver, maxQuantity, concurrency int) *CheckoutService {
	if maxQuantity <= 0 {
		maxQuantity = security.DefaultMaxQuantity
	}
	if concurrency <= 0 {
		concurrency = defaultResolveConcurrency
	}
	return &CheckoutService{
		cartRepo:    cartRepo,
		skuRepo:     skuRepo,
		addressRepo: addressRepo,
		images:      images,
		maxQuantity: maxQuantity,
		concurrency: concurrency,
	}
}

// NormalizeMode 结算模式，空值按购物车处理
func NormalizeMode(mode string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", constants.CheckoutModeCart:
		return constants.CheckoutModeCart, nil
	case constants.CheckoutModeDirect:
		return constants.CheckoutModeDirect, nil
	default:
		return "", apperr.Validation("初始化信息有误")
	}
}

// Prepare 生成结算页数据：商品行、合计与收货地址
func (s *CheckoutService) Prepare(ctx context.Context, req CheckoutRequest) (*CheckoutPreview, error) {
	mode, err := NormalizeMode(req.Mode)
	if err != nil {
		return nil, err
	}
	preview := &CheckoutPreview{Mode: mode}
	if mode == constants.CheckoutModeDirect {
		if strings.TrimSpace(req.SkuID) == "" {
			return nil, apperr.Validation(apperr.MsgNoSelection)
		}
		if err := security.ValidateQuantity(req.Quantity, s.maxQuantity); err != nil {
			return nil, err
		}
		preview.Quantity = req.Quantity
	}

	// 两路都等待结束后再按固定顺序判定：地址错误优先，空选择时仍带回已解析的地址
	var (
		g       errgroup.Group
		addrErr error
		goodErr error
	)
	g.Go(func() error {
		preview.Address, addrErr = s.DefaultAddress(ctx)
		return nil
	})
	g.Go(func() error {
		if mode == constants.CheckoutModeDirect {
			goodErr = s.prepareDirect(ctx, preview, strings.TrimSpace(req.SkuID))
		} else {
			goodErr = s.prepareCart(ctx, preview)
		}
		return nil
	})
	_ = g.Wait()
	if addrErr != nil {
		return nil, addrErr
	}
	if goodErr != nil {
		if errors.Is(goodErr, apperr.ErrEmptySelection) {
			return preview, goodErr
		}
		return nil, goodErr
	}
	preview.TotalPrice = models.TotalPrice(preview.GoodsList)
	return preview, nil
}

func (s *CheckoutService) prepareCart(ctx context.Context, preview *CheckoutPreview) error {
	items, err := s.cartRepo.ListItems(ctx)
	if err != nil {
		return err
	}
	selected := models.SelectedItems(items)
	if len(selected) == 0 {
		return apperr.ErrEmptySelection
	}
	preview.Items = selected
	preview.GoodsList = s.BuildGoodsList(ctx, selected)
	return nil
}

func (s *CheckoutService) prepareDirect(ctx context.Context, preview *CheckoutPreview, skuID string) error {
	sku, err := s.skuRepo.GetByID(ctx, skuID)
	if err != nil {
		return err
	}
	if sku == nil {
		return apperr.ErrNotFound
	}
	if sku.ID == "" {
		sku.ID = skuID
	}
	s.images.ResolveSku(sku)
	preview.DirectSku = sku
	preview.GoodsList = []models.GoodsLine{models.NewGoodsLine(sku, preview.Quantity)}
	return nil
}

// BuildGoodsList 并发补全每一行，单行失败降级为占位行，输出顺序与输入一致
func (s *CheckoutService) BuildGoodsList(ctx context.Context, items []models.CartItem) []models.GoodsLine {
	lines := make([]models.GoodsLine, len(items))
	log := logger.ForSession(backend.SessionKey(ctx))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, item := range items {
		if item.Sku.IsComplete() {
			s.images.ResolveSku(item.Sku)
			lines[i] = models.NewGoodsLine(item.Sku, item.Quantity)
			continue
		}
		lines[i] = models.NewGoodsLine(item.Sku, item.Quantity)
		skuID := item.SkuID
		if skuID == "" && item.Sku != nil {
			skuID = item.Sku.ID
		}
		if skuID == "" {
			log.Warnw("checkout_line_sku_missing", "cart_item_id", item.ID)
			continue
		}
		g.Go(func() error {
			sku, err := s.skuRepo.GetByID(ctx, skuID)
			if err != nil || sku == nil {
				log.Warnw("checkout_line_resolve_failed", "cart_item_id", item.ID, "sku_id", skuID, "error", err)
				return nil
			}
			s.images.ResolveSku(sku)
			lines[i] = models.NewGoodsLine(sku, item.Quantity)
			return nil
		})
	}
	_ = g.Wait()
	return lines
}

// DefaultAddress 当前用户的收货地址：默认地址优先，其次第一条，没有则为 nil
func (s *CheckoutService) DefaultAddress(ctx context.Context) (*models.Address, error) {
	addresses, err := s.addressRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return ResolveAddress(addresses), nil
}

// AddressByID 按 ID 获取收货地址，不存在时返回缺少地址错误
func (s *CheckoutService) AddressByID(ctx context.Context, id string) (*models.Address, error) {
	addr, err := s.addressRepo.GetByID(ctx, id)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.ErrMissingAddress
		}
		return nil, err
	}
	if addr == nil || addr.ID == "" {
		return nil, apperr.ErrMissingAddress
	}
	return addr, nil
}

// ResolveAddress 选择收货地址：默认地址优先，其次第一条
func ResolveAddress(addresses []models.Address) *models.Address {
	if len(addresses) == 0 {
		return nil
	}
	for i := range addresses {
		if addresses[i].IsDefault {
			addr := addresses[i]
			return &addr
		}
	}
	addr := addresses[0]
	return &addr
}
