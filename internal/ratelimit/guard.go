// Package ratelimit 提供按会话隔离的操作冷却与防抖调度。
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/z26b/storefront/internal/logger"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Guard 冷却守卫：窗口内同一 key 只放行第一次
type Guard interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// LocalGuard 进程内守卫
type LocalGuard struct {
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	limiters map[string]*guardEntry
}

type guardEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const pruneThreshold = 4096

// NewLocalGuard 创建进程内守卫
func NewLocalGuard(window time.Duration) *LocalGuard {
	return &LocalGuard{
		window:   window,
		now:      time.Now,
		limiters: make(map[string]*guardEntry),
	}
}

// Allow 判断是否放行
func (g *LocalGuard) Allow(_ context.Context, key string) (bool, error) {
	if g == nil || g.window <= 0 {
		return true, nil
	}
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.limiters) > pruneThreshold {
		g.prune(now)
	}
	entry, ok := g.limiters[key]
	if !ok {
		entry = &guardEntry{limiter: rate.NewLimiter(rate.Every(g.window), 1)}
		g.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1), nil
}

func (g *LocalGuard) prune(now time.Time) {
	for key, entry := range g.limiters {
		if now.Sub(entry.lastSeen) > g.window {
			delete(g.limiters, key)
		}
	}
}

// RedisGuard 基于 SET NX PX 的跨实例守卫
type RedisGuard struct {
	client *redis.Client
	prefix string
	window time.Duration
}

// NewRedisGuard 创建 Redis 守卫
func NewRedisGuard(client *redis.Client, prefix string, window time.Duration) *RedisGuard {
	return &RedisGuard{client: client, prefix: strings.TrimSpace(prefix), window: window}
}

// Allow 判断是否放行，Redis 不可用时放行
func (g *RedisGuard) Allow(ctx context.Context, key string) (bool, error) {
	if g == nil || g.client == nil || g.window <= 0 {
		return true, nil
	}
	fullKey := key
	if g.prefix != "" {
		fullKey = g.prefix + ":" + key
	}
	ok, err := g.client.SetNX(ctx, fullKey, 1, g.window).Result()
	if err != nil {
		logger.Warnw("ratelimit_guard_redis_failed", "key", fullKey, "error", err)
		return true, err
	}
	return ok, nil
}
