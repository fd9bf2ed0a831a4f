package ratelimit

import (
	"context"
	"sync"
	"time"
)

// CallFunc 被合并的调用
type CallFunc func(ctx context.Context) error

// Coalescer 按 key 合并调用：窗口内只保留最后一次，窗口结束后执行
type Coalescer struct {
	window  time.Duration
	onError func(ctx context.Context, key string, err error)

	mu       sync.Mutex
	seq      uint64
	pending  map[string]*pendingCall
	running  map[string]*flight
	inflight sync.WaitGroup
}

// flight 同一 key 正在执行的调用
type flight struct {
	n  int
	wg sync.WaitGroup
}

type pendingCall struct {
	seq   uint64
	ctx   context.Context
	fn    CallFunc
	timer *time.Timer
}

// NewCoalescer 创建合并器，onError 接收窗口结束后执行失败的错误
func NewCoalescer(window time.Duration, onError func(ctx context.Context, key string, err error)) *Coalescer {
	return &Coalescer{
		window:  window,
		onError: onError,
		pending: make(map[string]*pendingCall),
		running: make(map[string]*flight),
	}
}

// Submit 登记调用，替换同 key 尚未执行的调用并重新计时
func (c *Coalescer) Submit(ctx context.Context, key string, fn CallFunc) {
	if fn == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if c.window <= 0 {
		c.run(ctx, key, fn)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.pending[key]; ok {
		prev.timer.Stop()
	}
	c.seq++
	call := &pendingCall{seq: c.seq, ctx: ctx, fn: fn}
	seq := c.seq
	call.timer = time.AfterFunc(c.window, func() { c.fire(key, seq) })
	c.pending[key] = call
}

// Pending 尚未执行的调用数
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Flush 立即执行所有待执行调用并等待进行中的调用结束
func (c *Coalescer) Flush() {
	c.FlushMatching(nil)
	c.inflight.Wait()
}

// FlushMatching 立即执行 key 满足条件的待执行调用，并等待这些 key 上已在执行的调用结束。
// match 为 nil 时处理全部 key
func (c *Coalescer) FlushMatching(match func(key string) bool) {
	type started struct {
		call *pendingCall
		f    *flight
	}

	c.mu.Lock()
	waits := make([]*flight, 0)
	for key, f := range c.running {
		if match == nil || match(key) {
			waits = append(waits, f)
		}
	}
	calls := make(map[string]started)
	for key, call := range c.pending {
		if match != nil && !match(key) {
			continue
		}
		call.timer.Stop()
		delete(c.pending, key)
		calls[key] = started{call: call, f: c.beginLocked(key)}
	}
	c.mu.Unlock()

	for key, s := range calls {
		c.execute(s.call.ctx, key, s.call.fn, s.f)
	}
	for _, f := range waits {
		f.wg.Wait()
	}
}

func (c *Coalescer) fire(key string, seq uint64) {
	c.mu.Lock()
	call, ok := c.pending[key]
	if !ok || call.seq != seq {
		c.mu.Unlock()
		return
	}
	delete(c.pending, key)
	f := c.beginLocked(key)
	c.mu.Unlock()

	c.execute(call.ctx, key, call.fn, f)
}

func (c *Coalescer) run(ctx context.Context, key string, fn CallFunc) {
	c.mu.Lock()
	f := c.beginLocked(key)
	c.mu.Unlock()
	c.execute(ctx, key, fn, f)
}

// beginLocked 登记 key 上一次进行中的调用，调用方持有 c.mu
func (c *Coalescer) beginLocked(key string) *flight {
	f, ok := c.running[key]
	if !ok {
		f = &flight{}
		c.running[key] = f
	}
	f.n++
	f.wg.Add(1)
	c.inflight.Add(1)
	return f
}

func (c *Coalescer) finish(key string, f *flight) {
	c.mu.Lock()
	f.n--
	if f.n == 0 && c.running[key] == f {
		delete(c.running, key)
	}
	c.mu.Unlock()
	f.wg.Done()
	c.inflight.Done()
}

func (c *Coalescer) execute(ctx context.Context, key string, fn CallFunc, f *flight) {
	defer c.finish(key, f)
	if err := fn(ctx); err != nil && c.onError != nil {
		c.onError(ctx, key, err)
	}
}
