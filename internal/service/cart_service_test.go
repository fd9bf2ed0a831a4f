package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/z26b/storefront/internal/apperr"
	"github.com/z26b/storefront/internal/backend"
	"github.com/z26b/storefront/internal/models"
	"github.com/z26b/storefront/internal/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionContext(openID string) context.Context {
	return backend.WithIdentity(context.Background(), backend.Identity{OpenID: openID})
}

func newCartServiceForTest(log *callLog, items []models.CartItem, opts CartServiceOptions) (*CartService, *fakeCartRepo, *fakeSkuRepo) {
	cartRepo := &fakeCartRepo{log: log, items: items}
	skuRepo := &fakeSkuRepo{log: log, skus: map[string]*models.Sku{}, errs: map[string]error{}}
	return NewCartService(cartRepo, skuRepo, NewImageResolver("https://img.example.com"), opts), cartRepo, skuRepo
}

func TestCartQuantityValidationIssuesNoNetworkCall(t *testing.T) {
	log := &callLog{}
	svc, _, _ := newCartServiceForTest(log, nil, CartServiceOptions{UpdateDebounce: time.Hour})
	ctx := sessionContext("oid-1")

	for _, q := range []int{0, -1, 100} {
		_, err := svc.AddItem(ctx, "s1", q)
		assert.ErrorIs(t, err, apperr.ErrValidation, "add quantity %d", q)
		assert.ErrorIs(t, svc.UpdateQuantity(ctx, "c1", q), apperr.ErrValidation, "update quantity %d", q)
	}
	svc.Flush()
	assert.Empty(t, log.all())

	for _, q := range []int{1, 50, 99} {
		require.NoError(t, svc.UpdateQuantity(ctx, fmt.Sprintf("c%d", q), q))
	}
	svc.Flush()
	assert.Equal(t, 3, log.count("update:"))
}

func TestCartAddItemValidRange(t *testing.T) {
	log := &callLog{}
	svc, _, _ := newCartServiceForTest(log, nil, CartServiceOptions{})
	ctx := sessionContext("oid-1")
	for _, q := range []int{1, 99} {
		item, err := svc.AddItem(ctx, "s1", q)
		require.NoError(t, err)
		assert.Equal(t, q, item.Quantity)
		assert.False(t, item.IsSelected)
	}
	assert.Equal(t, 2, log.count("add:"))
}

func TestCartUpdateQuantityCoalescesBurst(t *testing.T) {
	log := &callLog{}
	svc, _, _ := newCartServiceForTest(log, nil, CartServiceOptions{UpdateDebounce: 300 * time.Millisecond})
	ctx := sessionContext("oid-1")

	for q := 1; q <= 5; q++ {
		require.NoError(t, svc.UpdateQuantity(ctx, "c1", q))
	}
	assert.Empty(t, log.all(), "nothing is sent inside the window")

	assert.Eventually(t, func() bool { return log.count("update:") == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(350 * time.Millisecond)
	assert.Equal(t, []string{"update:c1:qty=5"}, log.all())
}

func TestCartUpdateQuantityKeysAreSessionScoped(t *testing.T) {
	log := &callLog{}
	svc, _, _ := newCartServiceForTest(log, nil, CartServiceOptions{UpdateDebounce: time.Hour})

	require.NoError(t, svc.UpdateQuantity(sessionContext("oid-a"), "c1", 2))
	require.NoError(t, svc.UpdateQuantity(sessionContext("oid-b"), "c1", 3))
	svc.FlushSession(sessionContext("oid-a"))
	assert.Equal(t, []string{"update:c1:qty=2"}, log.all())

	svc.Flush()
	assert.ElementsMatch(t, []string{"update:c1:qty=2", "update:c1:qty=3"}, log.all())
}

func TestCartQuantitySyncFailureTriggersResync(t *testing.T) {
	log := &callLog{}
	svc, cartRepo, _ := newCartServiceForTest(log, nil, CartServiceOptions{UpdateDebounce: time.Hour})
	cartRepo.updateErr = apperr.ErrServer
	calls := 0
	svc.OnSyncFailure(func(context.Context) { calls++ })

	require.NoError(t, svc.UpdateQuantity(sessionContext("oid-1"), "c1", 4))
	svc.Flush()
	assert.Equal(t, 1, calls)
}

func TestCartAddGuardRejectsRapidAdds(t *testing.T) {
	log := &callLog{}
	svc, _, _ := newCartServiceForTest(log, nil, CartServiceOptions{AddGuard: ratelimit.NewLocalGuard(500 * time.Millisecond)})
	ctx := sessionContext("oid-1")

	_, err := svc.AddItem(ctx, "s1", 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "s2", 1)
	require.ErrorIs(t, err, apperr.ErrRateLimited)
	assert.Equal(t, apperr.MsgTooFrequent, apperr.Message(err))
	assert.Equal(t, 1, log.count("add:"))

	_, err = svc.AddItem(sessionContext("oid-2"), "s1", 1)
	assert.NoError(t, err, "guard is per session")
}

func TestCartFetchItemsResolvesAndSkips(t *testing.T) {
	log := &callLog{}
	items := []models.CartItem{
		{ID: "c1", SkuID: "s1", Quantity: 1, Sku: newSku("s1", "完整", 1000)},
		{ID: "c2", SkuID: "s2", Quantity: 2},
		{ID: "c3", SkuID: "missing", Quantity: 1},
		{ID: "c4", Quantity: 1},
		{ID: "c5", SkuID: "s5", Quantity: 3, Sku: &models.Sku{ID: "s5"}},
	}
	svc, _, skuRepo := newCartServiceForTest(log, items, CartServiceOptions{ResolveConcurrency: 2})
	skuRepo.skus["s2"] = newSku("s2", "补全", 500)
	skuRepo.skus["s5"] = newSku("s5", "五号", 300)
	skuRepo.errs["missing"] = errors.New("boom")

	got, err := svc.FetchItems(sessionContext("oid-1"))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c1", "c2", "c5"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "补全", got[1].Sku.Title())
	assert.Equal(t, "https://img.example.com/cover/s2.png", got[1].Sku.Thumbnail())
	assert.Equal(t, 0, log.count("get:sku:s1"), "complete sku is not refetched")
}

func TestCartFetchItemsPropagatesListError(t *testing.T) {
	log := &callLog{}
	svc, cartRepo, _ := newCartServiceForTest(log, nil, CartServiceOptions{})
	cartRepo.listErr = apperr.New(apperr.KindTransientNetwork, apperr.MsgTimeout)
	_, err := svc.FetchItems(sessionContext("oid-1"))
	assert.ErrorIs(t, err, apperr.ErrTransientNetwork)
}
