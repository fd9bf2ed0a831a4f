package service

import (
	"context"
	"strings"

	"github.com/z26b/storefront/internal/backend"
	"github.com/z26b/storefront/internal/logger"
	"github.com/z26b/storefront/internal/models"
	"github.com/z26b/storefront/internal/queue"
)

// SnapshotStore 购物车快照存储
type SnapshotStore interface {
	Load(ctx context.Context, session string) (*models.CartSnapshot, error)
	Save(ctx context.Context, session string, snapshot *models.CartSnapshot) error
	// CompareAndSave 仅当已存快照版本等于 expected 时写入，快照不存在也视为冲突
	CompareAndSave(ctx context.Context, session string, expected int64, snapshot *models.CartSnapshot) (bool, error)
	Invalidate(ctx context.Context, session string) error
}

// CartInvalidator 购物车失效通知
type CartInvalidator interface {
	InvalidateCart(ctx context.Context) error
}

// SnapshotInvalidator 删除当前会话的快照，并在启用队列时投递预热任务
type SnapshotInvalidator struct {
	store       SnapshotStore
	queueClient *queue.Client
}

// NewSnapshotInvalidator 创建快照失效器
func NewSnapshotInvalidator(store SnapshotStore, queueClient *queue.Client) *SnapshotInvalidator {
	return &SnapshotInvalidator{store: store, queueClient: queueClient}
}

// InvalidateCart 使当前会话的购物车快照失效
func (i *SnapshotInvalidator) InvalidateCart(ctx context.Context) error {
	session := backend.SessionKey(ctx)
	if i.store != nil {
		if err := i.store.Invalidate(ctx, session); err != nil {
			return err
		}
	}
	if i.queueClient == nil || !i.queueClient.Enabled() {
		return nil
	}
	// 仅凭 token 识别的会话不预热，下次访问时再拉取
	id, _ := backend.IdentityFrom(ctx)
	if strings.TrimSpace(id.OpenID) == "" {
		return nil
	}
	if err := i.queueClient.EnqueueCartRefresh(queue.CartRefreshPayload{
		SessionKey: session,
		OpenID:     id.OpenID,
	}); err != nil {
		logger.Warnw("cart_refresh_enqueue_failed", "session", session, "error", err)
	}
	return nil
}
