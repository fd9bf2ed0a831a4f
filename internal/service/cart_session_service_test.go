package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/z26b/storefront/internal/apperr"
	"github.com/z26b/storefront/internal/cache"
	"github.com/z26b/storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCartSessionForTest(items []models.CartItem) (*CartSessionService, *fakeCartRepo, *callLog, *countingInvalidator) {
	log := &callLog{}
	cart, cartRepo, _ := newCartServiceForTest(log, items, CartServiceOptions{UpdateDebounce: time.Hour})
	inv := &countingInvalidator{}
	svc := NewCartSessionService(cart, cache.NewMemorySnapshotStore(time.Minute), inv)
	return svc, cartRepo, log, inv
}

func sessionItems() []models.CartItem {
	return []models.CartItem{
		{ID: "c1", SkuID: "s1", Quantity: 1, IsSelected: false, Sku: newSku("s1", "甲", 1000)},
		{ID: "c2", SkuID: "s2", Quantity: 2, IsSelected: true, Sku: newSku("s2", "乙", 500)},
	}
}

func TestCartSessionViewUsesSnapshot(t *testing.T) {
	svc, _, log, _ := newCartSessionForTest(sessionItems())
	ctx := sessionContext("oid-1")

	view, err := svc.View(ctx)
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
	assert.Equal(t, 1, view.Summary.SelectedCount)
	assert.Equal(t, "10.00", view.Summary.SelectedTotal.String())

	_, err = svc.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, log.count("list:cart"))

	_, err = svc.View(sessionContext("oid-2"))
	require.NoError(t, err)
	assert.Equal(t, 2, log.count("list:cart"))
}

func TestCartSessionToggleIsOptimistic(t *testing.T) {
	svc, cartRepo, log, inv := newCartSessionForTest(sessionItems())
	ctx := sessionContext("oid-1")

	view, err := svc.ToggleSelected(ctx, "c1", true)
	require.NoError(t, err)
	assert.True(t, view.Summary.AllSelected)
	assert.Equal(t, "20.00", view.Summary.SelectedTotal.String())
	assert.Equal(t, []string{"update:c1:selected=true"}, log.writes())
	assert.Equal(t, 0, inv.Count())

	cartRepo.updateErr = apperr.ErrTransientNetwork
	view, err = svc.ToggleSelected(ctx, "c2", false)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Summary.SelectedCount)
	assert.Equal(t, 1, inv.Count())
}

func TestCartSessionToggleUnknownItem(t *testing.T) {
	svc, _, log, _ := newCartSessionForTest(sessionItems())

	_, err := svc.ToggleSelected(sessionContext("oid-1"), "missing", true)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, log.writes())
}

func TestCartSessionVersionIncreases(t *testing.T) {
	svc, _, _, _ := newCartSessionForTest(sessionItems())
	fixed := time.UnixMilli(1_700_000_000_000)
	svc.now = func() time.Time { return fixed }
	ctx := sessionContext("oid-1")

	first, err := svc.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, fixed.UnixMilli(), first.Version)

	second, err := svc.ChangeQuantity(ctx, "c2", 3)
	require.NoError(t, err)
	assert.Greater(t, second.Version, first.Version)
	assert.Equal(t, 3, second.Items[1].Quantity)

	third, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Greater(t, third.Version, second.Version)
}

func TestCartSessionChangeQuantityValidates(t *testing.T) {
	svc, _, log, _ := newCartSessionForTest(sessionItems())

	_, err := svc.ChangeQuantity(sessionContext("oid-1"), "c1", 0)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, log.all())
}

func TestCartSessionRemoveRequiresConfirmation(t *testing.T) {
	svc, _, log, _ := newCartSessionForTest(sessionItems())
	ctx := sessionContext("oid-1")

	_, err := svc.Remove(ctx, "c1", false)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, log.all())

	view, err := svc.Remove(ctx, "c1", true)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "c2", view.Items[0].ID)
	assert.Equal(t, []string{"remove:c1"}, log.writes())
}

func TestCartSessionSettleRequiresSelection(t *testing.T) {
	items := sessionItems()
	items[1].IsSelected = false
	svc, _, log, _ := newCartSessionForTest(items)

	_, err := svc.Settle(sessionContext("oid-1"))
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, apperr.MsgNoSelection, apperr.Message(err))
	assert.Empty(t, log.writes())
}

func TestCartSessionSettleFlushesPendingQuantity(t *testing.T) {
	svc, _, log, _ := newCartSessionForTest(sessionItems())
	ctx := sessionContext("oid-1")

	_, err := svc.ChangeQuantity(ctx, "c2", 4)
	require.NoError(t, err)
	assert.Empty(t, log.writes())

	result, err := svc.Settle(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, result.ItemIDs)
	assert.Equal(t, "20.00", result.Summary.SelectedTotal.String())
	assert.Equal(t, []string{"update:c2:qty=4", "update:c2:selected=true"}, log.writes())
}

func TestCartSessionSelectAll(t *testing.T) {
	svc, _, log, _ := newCartSessionForTest(sessionItems())

	view, err := svc.SelectAll(sessionContext("oid-1"), true)
	require.NoError(t, err)
	assert.True(t, view.Summary.AllSelected)
	assert.Equal(t, []string{"update:c1:selected=true"}, log.writes())
}

// slowSnapshotStore 读取后延迟返回，beforeReturn 可模拟其他实例在读取后写入
type slowSnapshotStore struct {
	*cache.MemorySnapshotStore
	delay        time.Duration
	beforeReturn func(ctx context.Context, session string)
}

func (s *slowSnapshotStore) Load(ctx context.Context, session string) (*models.CartSnapshot, error) {
	snapshot, err := s.MemorySnapshotStore.Load(ctx, session)
	time.Sleep(s.delay)
	if s.beforeReturn != nil && snapshot != nil {
		s.beforeReturn(ctx, session)
	}
	return snapshot, err
}

func TestCartSessionConcurrentChangesKeepBoth(t *testing.T) {
	log := &callLog{}
	cart, _, _ := newCartServiceForTest(log, sessionItems(), CartServiceOptions{UpdateDebounce: time.Hour})
	inv := &countingInvalidator{}
	store := &slowSnapshotStore{MemorySnapshotStore: cache.NewMemorySnapshotStore(time.Minute), delay: 30 * time.Millisecond}
	svc := NewCartSessionService(cart, store, inv)
	ctx := sessionContext("oid-1")
	_, err := svc.View(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, change := range []struct {
		id  string
		qty int
	}{{"c1", 7}, {"c2", 9}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.ChangeQuantity(ctx, change.id, change.qty)
		}()
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	view, err := svc.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, view.Items[0].Quantity)
	assert.Equal(t, 9, view.Items[1].Quantity)
	assert.Equal(t, 0, inv.Count())
}

func TestCartSessionVersionConflictInvalidates(t *testing.T) {
	log := &callLog{}
	cart, _, _ := newCartServiceForTest(log, sessionItems(), CartServiceOptions{UpdateDebounce: time.Hour})
	inv := &countingInvalidator{}
	store := &slowSnapshotStore{MemorySnapshotStore: cache.NewMemorySnapshotStore(time.Minute)}
	svc := NewCartSessionService(cart, store, inv)
	ctx := sessionContext("oid-1")
	_, err := svc.View(ctx)
	require.NoError(t, err)

	store.beforeReturn = func(ctx context.Context, session string) {
		current, _ := store.MemorySnapshotStore.Load(ctx, session)
		current.Version++
		current.Items[1].Quantity = 5
		_ = store.MemorySnapshotStore.Save(ctx, session, current)
	}
	_, err = svc.ChangeQuantity(ctx, "c1", 4)
	require.NoError(t, err)
	assert.Equal(t, 1, inv.Count())

	store.beforeReturn = nil
	stored, err := store.MemorySnapshotStore.Load(ctx, "oid:oid-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 1, stored.Items[0].Quantity, "a conflicting write must not overwrite the newer snapshot")
	assert.Equal(t, 5, stored.Items[1].Quantity)
}
