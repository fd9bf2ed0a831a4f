package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/z26b/storefront/internal/apperr"
	"github.com/z26b/storefront/internal/backend"
	"github.com/z26b/storefront/internal/logger"
	"github.com/z26b/storefront/internal/models"

	"github.com/ecodeclub/ekit/slice"
	"golang.org/x/sync/errgroup"
)

// CartView 购物车页面数据
type CartView struct {
	Version int64              `json:"version"`
	Items   []models.CartItem  `json:"items"`
	Summary models.CartSummary `json:"summary"`
}

// SettleResult 去结算结果
type SettleResult struct {
	ItemIDs []string           `json:"item_ids"`
	Summary models.CartSummary `json:"summary"`
}

// CartSessionService 会话购物车：本地快照乐观更新，远端异步同步，失败后整体重新拉取
type CartSessionService struct {
	cart        *CartService
	store       SnapshotStore
	invalidator CartInvalidator
	locks       sessionLocks
	now         func() time.Time
}

// sessionLocks 按会话加锁，本实例内同一会话的快照读改写串行执行
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (l *sessionLocks) lock(session string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sessionLock)
	}
	entry, ok := l.locks[session]
	if !ok {
		entry = &sessionLock{}
		l.locks[session] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, session)
		}
		l.mu.Unlock()
	}
}

// NewCartSessionService 创建会话购物车服务
func NewCartSessionService(cart *CartService, store SnapshotStore, invalidator CartInvalidator) *CartSessionService {
	s := &CartSessionService{
		cart:        cart,
		store:       store,
		invalidator: invalidator,
		now:         time.Now,
	}
	cart.OnSyncFailure(s.resync)
	return s
}

// View 读取购物车，快照缺失时从远端拉取
func (s *CartSessionService) View(ctx context.Context) (*CartView, error) {
	snapshot, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return toCartView(snapshot), nil
}

// Refresh 丢弃快照并重新拉取
func (s *CartSessionService) Refresh(ctx context.Context) (*CartView, error) {
	var prev *models.CartSnapshot
	if s.store != nil {
		prev, _ = s.store.Load(ctx, backend.SessionKey(ctx))
	}
	snapshot, err := s.refetch(ctx, prev)
	if err != nil {
		return nil, err
	}
	return toCartView(snapshot), nil
}

// Add 加入购物车，成功后快照失效
func (s *CartSessionService) Add(ctx context.Context, skuID string, quantity int) (*models.CartItem, error) {
	item, err := s.cart.AddItem(ctx, skuID, quantity)
	if err != nil {
		return nil, err
	}
	s.resync(ctx)
	return item, nil
}

// ToggleSelected 切换单项选中：先更新本地，同步失败只记录日志并让快照失效
func (s *CartSessionService) ToggleSelected(ctx context.Context, itemID string, selected bool) (*CartView, error) {
	itemID = strings.TrimSpace(itemID)
	snapshot, err := s.mutate(ctx, func(snapshot *models.CartSnapshot) (bool, error) {
		idx := snapshot.Find(itemID)
		if idx < 0 {
			return false, errCartItemMissing()
		}
		snapshot.Items[idx].IsSelected = selected
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cart.UpdateSelected(ctx, itemID, selected); err != nil {
		logger.ForSession(backend.SessionKey(ctx)).Warnw("cart_selection_sync_failed",
			"cart_item_id", itemID,
			"selected", selected,
			"error", err,
		)
		s.resync(ctx)
	}
	return toCartView(snapshot), nil
}

// SelectAll 全选或全不选
func (s *CartSessionService) SelectAll(ctx context.Context, selected bool) (*CartView, error) {
	var changed []string
	snapshot, err := s.mutate(ctx, func(snapshot *models.CartSnapshot) (bool, error) {
		changed = make([]string, 0, len(snapshot.Items))
		for i := range snapshot.Items {
			if snapshot.Items[i].IsSelected != selected {
				snapshot.Items[i].IsSelected = selected
				changed = append(changed, snapshot.Items[i].ID)
			}
		}
		return len(changed) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return toCartView(snapshot), nil
	}

	if err := s.syncSelection(ctx, changed, selected); err != nil {
		logger.ForSession(backend.SessionKey(ctx)).Warnw("cart_select_all_sync_failed", "count", len(changed), "error", err)
		s.resync(ctx)
	}
	return toCartView(snapshot), nil
}

// ChangeQuantity 修改数量：本地立即生效，远端按防抖合并提交
func (s *CartSessionService) ChangeQuantity(ctx context.Context, itemID string, quantity int) (*CartView, error) {
	if err := s.cart.ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	itemID = strings.TrimSpace(itemID)
	snapshot, err := s.mutate(ctx, func(snapshot *models.CartSnapshot) (bool, error) {
		idx := snapshot.Find(itemID)
		if idx < 0 {
			return false, errCartItemMissing()
		}
		if err := s.cart.UpdateQuantity(ctx, itemID, quantity); err != nil {
			return false, err
		}
		snapshot.Items[idx].Quantity = quantity
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return toCartView(snapshot), nil
}

// Remove 删除购物车项，必须显式确认
func (s *CartSessionService) Remove(ctx context.Context, itemID string, confirmed bool) (*CartView, error) {
	if !confirmed {
		return nil, apperr.Validation("请确认删除该商品")
	}
	itemID = strings.TrimSpace(itemID)
	snapshot, err := s.mutate(ctx, func(snapshot *models.CartSnapshot) (bool, error) {
		idx := snapshot.Find(itemID)
		if idx < 0 {
			return false, errCartItemMissing()
		}
		if err := s.cart.DeleteItem(ctx, itemID); err != nil {
			s.resync(ctx)
			return false, err
		}
		snapshot.Items = append(snapshot.Items[:idx], snapshot.Items[idx+1:]...)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return toCartView(snapshot), nil
}

// Settle 去结算：至少选中一项，并确保选中状态已同步到远端
func (s *CartSessionService) Settle(ctx context.Context) (*SettleResult, error) {
	s.cart.FlushSession(ctx)
	snapshot, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	selected := models.SelectedItems(snapshot.Items)
	if len(selected) == 0 {
		return nil, apperr.Validation(apperr.MsgNoSelection)
	}
	ids := slice.Map(selected, func(_ int, item models.CartItem) string {
		return item.ID
	})
	if err := s.syncSelection(ctx, ids, true); err != nil {
		s.resync(ctx)
		return nil, err
	}
	return &SettleResult{ItemIDs: ids, Summary: models.SummarizeCart(snapshot.Items)}, nil
}

// InvalidateCart 让当前会话快照失效
func (s *CartSessionService) InvalidateCart(ctx context.Context) error {
	if s.invalidator != nil {
		return s.invalidator.InvalidateCart(ctx)
	}
	if s.store != nil {
		return s.store.Invalidate(ctx, backend.SessionKey(ctx))
	}
	return nil
}

// Warm 后台预热：重新拉取并写入快照
func (s *CartSessionService) Warm(ctx context.Context) error {
	_, err := s.refetch(ctx, nil)
	return err
}

func (s *CartSessionService) syncSelection(ctx context.Context, ids []string, selected bool) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cart.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			return s.cart.UpdateSelected(gctx, id, selected)
		})
	}
	return g.Wait()
}

func errCartItemMissing() error {
	return apperr.New(apperr.KindNotFound, "购物车商品不存在")
}

// mutate 在会话锁内读取快照、应用本地变更并按读取时的版本写回
func (s *CartSessionService) mutate(ctx context.Context, apply func(snapshot *models.CartSnapshot) (bool, error)) (*models.CartSnapshot, error) {
	unlock := s.locks.lock(backend.SessionKey(ctx))
	defer unlock()

	snapshot, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	expected := snapshot.Version
	changed, err := apply(snapshot)
	if err != nil {
		return nil, err
	}
	if changed {
		s.commit(ctx, snapshot, expected)
	}
	return snapshot, nil
}

func (s *CartSessionService) load(ctx context.Context) (*models.CartSnapshot, error) {
	session := backend.SessionKey(ctx)
	if s.store != nil {
		snapshot, err := s.store.Load(ctx, session)
		if err != nil {
			logger.ForSession(session).Warnw("cart_snapshot_load_failed", "error", err)
		} else if snapshot != nil {
			return snapshot, nil
		}
	}
	return s.refetch(ctx, nil)
}

func (s *CartSessionService) refetch(ctx context.Context, prev *models.CartSnapshot) (*models.CartSnapshot, error) {
	items, err := s.cart.FetchItems(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := &models.CartSnapshot{
		Version:   s.nextVersion(prev),
		Items:     items,
		FetchedAt: s.now(),
	}
	s.save(ctx, snapshot)
	return snapshot, nil
}

// commit 本地变更提交：版本号递增后写回。已存版本与 expected 不一致说明有其他实例写入，
// 此时放弃本次写回并让快照失效
func (s *CartSessionService) commit(ctx context.Context, snapshot *models.CartSnapshot, expected int64) {
	snapshot.Version = s.nextVersion(snapshot)
	if s.store == nil {
		return
	}
	session := backend.SessionKey(ctx)
	ok, err := s.store.CompareAndSave(ctx, session, expected, snapshot)
	if err != nil {
		logger.ForSession(session).Warnw("cart_snapshot_save_failed", "error", err)
		s.resync(ctx)
		return
	}
	if !ok {
		logger.ForSession(session).Infow("cart_snapshot_conflict", "expected_version", expected, "version", snapshot.Version)
		s.resync(ctx)
	}
}

func (s *CartSessionService) save(ctx context.Context, snapshot *models.CartSnapshot) {
	if s.store == nil {
		return
	}
	session := backend.SessionKey(ctx)
	if err := s.store.Save(ctx, session, snapshot); err != nil {
		logger.ForSession(session).Warnw("cart_snapshot_save_failed", "error", err)
	}
}

// nextVersion 版本号取 max(上一版本+1, 当前毫秒时间)，快照被删除后仍保持递增
func (s *CartSessionService) nextVersion(prev *models.CartSnapshot) int64 {
	next := s.now().UnixMilli()
	if prev != nil && prev.Version >= next {
		next = prev.Version + 1
	}
	return next
}

func (s *CartSessionService) resync(ctx context.Context) {
	if err := s.InvalidateCart(ctx); err != nil {
		logger.ForSession(backend.SessionKey(ctx)).Warnw("cart_snapshot_invalidate_failed", "error", err)
	}
}

func toCartView(snapshot *models.CartSnapshot) *CartView {
	return &CartView{
		Version: snapshot.Version,
		Items:   snapshot.Items,
		Summary: models.SummarizeCart(snapshot.Items),
	}
}
