package cache

import (
	"context"
	"testing"
	"time"

	"github.com/z26b/storefront/internal/config"
	"github.com/z26b/storefront/internal/models"
)

func TestDisabledRedisIsNoop(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false}); err != nil {
		t.Fatalf("init redis failed: %v", err)
	}
	if Enabled() || Client() != nil {
		t.Fatalf("redis should be disabled")
	}
	store := NewRedisSnapshotStore(time.Minute)
	ctx := context.Background()
	if err := store.Save(ctx, "oid:a", &models.CartSnapshot{Version: 1}); err != nil {
		t.Fatalf("save should be no-op: %v", err)
	}
	got, err := store.Load(ctx, "oid:a")
	if err != nil || got != nil {
		t.Fatalf("load should miss, got %+v %v", got, err)
	}
	if err := store.Invalidate(ctx, "oid:a"); err != nil {
		t.Fatalf("invalidate should be no-op: %v", err)
	}
	if ok, err := store.CompareAndSave(ctx, "oid:a", 1, &models.CartSnapshot{Version: 2}); err != nil || !ok {
		t.Fatalf("compare and save should pass through when redis is disabled: %v %v", ok, err)
	}
}

func TestMemorySnapshotStore(t *testing.T) {
	store := NewMemorySnapshotStore(time.Minute)
	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	snapshot := &models.CartSnapshot{
		Version: 3,
		Items:   []models.CartItem{{ID: "c1", Quantity: 1}},
	}
	if err := store.Save(ctx, "oid:a", snapshot); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	snapshot.Items[0].Quantity = 9

	got, err := store.Load(ctx, "oid:a")
	if err != nil || got == nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Version != 3 || got.Items[0].Quantity != 1 {
		t.Fatalf("store must keep an isolated copy, got %+v", got)
	}
	got.Items[0].Quantity = 7
	again, _ := store.Load(ctx, "oid:a")
	if again.Items[0].Quantity != 1 {
		t.Fatalf("loaded snapshot must be a copy")
	}

	now = now.Add(2 * time.Minute)
	expired, _ := store.Load(ctx, "oid:a")
	if expired != nil {
		t.Fatalf("snapshot should expire")
	}

	_ = store.Save(ctx, "oid:b", snapshot)
	_ = store.Invalidate(ctx, "oid:b")
	if gone, _ := store.Load(ctx, "oid:b"); gone != nil {
		t.Fatalf("snapshot should be invalidated")
	}
}

func TestMemorySnapshotStoreCompareAndSave(t *testing.T) {
	store := NewMemorySnapshotStore(time.Minute)
	ctx := context.Background()

	ok, err := store.CompareAndSave(ctx, "oid:a", 1, &models.CartSnapshot{Version: 2})
	if err != nil || ok {
		t.Fatalf("missing snapshot must be a conflict, got %v %v", ok, err)
	}

	_ = store.Save(ctx, "oid:a", &models.CartSnapshot{Version: 1})
	ok, err = store.CompareAndSave(ctx, "oid:a", 1, &models.CartSnapshot{Version: 2, Items: []models.CartItem{{ID: "c1"}}})
	if err != nil || !ok {
		t.Fatalf("matching version must be saved, got %v %v", ok, err)
	}
	ok, _ = store.CompareAndSave(ctx, "oid:a", 1, &models.CartSnapshot{Version: 3})
	if ok {
		t.Fatalf("stale version must be rejected")
	}
	got, _ := store.Load(ctx, "oid:a")
	if got == nil || got.Version != 2 || len(got.Items) != 1 {
		t.Fatalf("unexpected snapshot after conflict: %+v", got)
	}
}
