package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/z26b/storefront/internal/constants"
	"github.com/z26b/storefront/internal/models"
)

const defaultSnapshotTTL = 2 * time.Minute

func cartSnapshotKey(session string) string {
	return "cart:snapshot:" + strings.TrimSpace(session)
}

// RedisSnapshotStore 基于 Redis 的购物车快照存储（多实例共享）
type RedisSnapshotStore struct {
	ttl time.Duration
}

// NewRedisSnapshotStore 创建 Redis 快照存储
func NewRedisSnapshotStore(ttl time.Duration) *RedisSnapshotStore {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &RedisSnapshotStore{ttl: ttl}
}

// Load 读取快照，未命中返回 nil
func (s *RedisSnapshotStore) Load(ctx context.Context, session string) (*models.CartSnapshot, error) {
	var snapshot models.CartSnapshot
	hit, err := GetJSON(ctx, cartSnapshotKey(session), &snapshot)
	if err != nil || !hit {
		return nil, err
	}
	return &snapshot, nil
}

// Save 写入快照
func (s *RedisSnapshotStore) Save(ctx context.Context, session string, snapshot *models.CartSnapshot) error {
	if snapshot == nil {
		return nil
	}
	return SetJSON(ctx, cartSnapshotKey(session), snapshot, s.ttl)
}

// CompareAndSave 按版本号比较后写入
func (s *RedisSnapshotStore) CompareAndSave(ctx context.Context, session string, expected int64, snapshot *models.CartSnapshot) (bool, error) {
	if snapshot == nil {
		return false, nil
	}
	return CompareAndSetJSON(ctx, cartSnapshotKey(session), "version", expected, snapshot, s.ttl)
}

// Invalidate 删除快照并广播失效事件
func (s *RedisSnapshotStore) Invalidate(ctx context.Context, session string) error {
	if err := Del(ctx, cartSnapshotKey(session)); err != nil {
		return err
	}
	return Publish(ctx, constants.CartEventChannel, session)
}

// MemorySnapshotStore 进程内快照存储
type MemorySnapshotStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memorySnapshot
}

type memorySnapshot struct {
	snapshot  models.CartSnapshot
	expiresAt time.Time
}

// NewMemorySnapshotStore 创建进程内快照存储
func NewMemorySnapshotStore(ttl time.Duration) *MemorySnapshotStore {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	return &MemorySnapshotStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memorySnapshot),
	}
}

// Load 读取快照，返回副本
func (s *MemorySnapshotStore) Load(_ context.Context, session string) (*models.CartSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[session]
	if !ok {
		return nil, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, session)
		return nil, nil
	}
	snapshot := entry.snapshot
	snapshot.Items = append([]models.CartItem(nil), entry.snapshot.Items...)
	return &snapshot, nil
}

// Save 写入快照副本
func (s *MemorySnapshotStore) Save(_ context.Context, session string, snapshot *models.CartSnapshot) error {
	if snapshot == nil {
		return nil
	}
	copied := *snapshot
	copied.Items = append([]models.CartItem(nil), snapshot.Items...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[session] = memorySnapshot{snapshot: copied, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// CompareAndSave 已存快照未过期且版本等于 expected 时写入
func (s *MemorySnapshotStore) CompareAndSave(_ context.Context, session string, expected int64, snapshot *models.CartSnapshot) (bool, error) {
	if snapshot == nil {
		return false, nil
	}
	copied := *snapshot
	copied.Items = append([]models.CartItem(nil), snapshot.Items...)
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[session]
	if !ok || s.now().After(entry.expiresAt) || entry.snapshot.Version != expected {
		return false, nil
	}
	s.entries[session] = memorySnapshot{snapshot: copied, expiresAt: s.now().Add(s.ttl)}
	return true, nil
}

// Invalidate 删除快照
func (s *MemorySnapshotStore) Invalidate(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, session)
	return nil
}
