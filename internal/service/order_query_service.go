package service

import (
	"context"
	"strings"

	"github.com/z26b/storefront/internal/apperr"
	"github.com/z26b/storefront/internal/constants"
	"github.com/z26b/storefront/internal/models"
	"github.com/z26b/storefront/internal/repository"

	"golang.org/x/sync/errgroup"
)

// OrderListQuery 订单列表查询
type OrderListQuery struct {
	Page     int
	PageSize int
	Status   string
}

// OrderQueryService 订单查询与售后操作
type OrderQueryService struct {
	orderRepo repository.OrderRepository
	images    *ImageResolver
}

// NewOrderQueryService 创建订单查询服务
func NewOrderQueryService(orderRepo repository.OrderRepository, images *ImageResolver) *OrderQueryService {
	return &OrderQueryService{orderRepo: orderRepo, images: images}
}

// List 分页查询订单
func (s *OrderQueryService) List(ctx context.Context, query OrderListQuery) ([]models.Order, int64, error) {
	status := strings.ToUpper(strings.TrimSpace(query.Status))
	if status != "" {
		if _, ok := constants.OrderStatusLabels[status]; !ok {
			return nil, 0, apperr.Validation("订单状态无效")
		}
	}
	orders, total, err := s.orderRepo.List(ctx, repository.OrderListFilter{
		Page:     query.Page,
		PageSize: query.PageSize,
		Status:   status,
	})
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		s.decorate(&orders[i])
	}
	return orders, total, nil
}

// Detail 订单详情
func (s *OrderQueryService) Detail(ctx context.Context, id string) (*models.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.Validation("订单不存在")
	}
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.New(apperr.KindNotFound, "订单不存在")
	}
	s.decorate(order)
	return order, nil
}

// Cancel 取消订单
func (s *OrderQueryService) Cancel(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperr.Validation("订单不存在")
	}
	return s.orderRepo.Cancel(ctx, id)
}

// ConfirmReceipt 确认收货
func (s *OrderQueryService) ConfirmReceipt(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperr.Validation("订单不存在")
	}
	return s.orderRepo.ConfirmReceipt(ctx, id)
}

// Counts 各状态订单数量（每个状态取一条记录读取总数）
func (s *OrderQueryService) Counts(ctx context.Context) (*models.OrderStatusCounts, error) {
	counts := &models.OrderStatusCounts{}
	targets := []struct {
		status string
		dest   *int64
	}{
		{constants.OrderStatusToPay, &counts.Unpaid},
		{constants.OrderStatusToSend, &counts.Undelivered},
		{constants.OrderStatusToReceive, &counts.Unreceived},
		{constants.OrderStatusFinished, &counts.Completed},
		{constants.OrderStatusCanceled, &counts.Canceled},
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		g.Go(func() error {
			_, total, err := s.orderRepo.List(gctx, repository.OrderListFilter{Page: 1, PageSize: 1, Status: target.status})
			if err != nil {
				return err
			}
			*target.dest = total
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// Balance 账户余额
func (s *OrderQueryService) Balance(ctx context.Context) (models.Money, error) {
	return s.orderRepo.Balance(ctx)
}

func (s *OrderQueryService) decorate(order *models.Order) {
	if order == nil {
		return
	}
	if label, ok := constants.OrderStatusLabels[order.Status]; ok {
		order.StatusLabel = label
	}
	for i := range order.Items {
		order.Items[i].Goods.Thumbnail = s.images.Resolve(order.Items[i].Goods.Thumbnail)
	}
}
