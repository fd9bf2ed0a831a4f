package worker

import (
	"context"
	"strings"
	"time"

	"github.com/z26b/storefront/internal/apperr"
	"github.com/z26b/storefront/internal/backend"
	"github.com/z26b/storefront/internal/logger"
	"github.com/z26b/storefront/internal/provider"
	"github.com/z26b/storefront/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
	now func() time.Time
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
		now:       time.Now,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCartRefresh, c.handleCartRefresh)
	mux.HandleFunc(queue.TaskOrderPlaced, c.handleOrderPlaced)
}

func (c *Consumer) handleCartRefresh(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_cart_refresh_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseCartRefreshPayload(task)
	if err != nil {
		logger.Warnw("worker_cart_refresh_unmarshal_failed", "error", err)
		return err
	}
	id := backend.Identity{OpenID: strings.TrimSpace(payload.OpenID)}
	if id.Empty() {
		logger.Debugw("worker_cart_refresh_skip_anonymous", "session", payload.SessionKey)
		return nil
	}
	if c.CartSessionService == nil {
		logger.Warnw("worker_cart_refresh_skip_service_nil", "session", payload.SessionKey)
		return nil
	}
	ctx = backend.WithIdentity(ctx, id)
	if err := c.CartSessionService.Warm(ctx); err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindUnauthorized, apperr.KindNotFound, apperr.KindRejected:
			logger.Debugw("worker_cart_refresh_skip", "session", id.Key(), "kind", apperr.KindOf(err))
			return nil
		default:
			logger.Warnw("worker_cart_refresh_failed", "session", id.Key(), "error", err)
			return err
		}
	}
	logger.Debugw("worker_cart_refresh_done", "session", id.Key())
	return nil
}

func (c *Consumer) handleOrderPlaced(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_placed_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseOrderPlacedPayload(task)
	if err != nil {
		logger.Warnw("worker_order_placed_unmarshal_failed", "error", err)
		return err
	}
	if strings.TrimSpace(payload.SubmissionID) == "" {
		logger.Debugw("worker_order_placed_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	logger.ForSession(payload.SessionKey).Infow("worker_order_placed",
		"submission_id", payload.SubmissionID,
		"order_id", payload.OrderID,
		"mode", payload.Mode,
		"paid_amount", payload.PaidAmount,
	)
	if c.CheckoutAttemptRepo == nil {
		return nil
	}
	marked, err := c.CheckoutAttemptRepo.MarkNotified(payload.SubmissionID, c.now())
	if err != nil {
		logger.Warnw("worker_order_placed_journal_failed", "submission_id", payload.SubmissionID, "error", err)
		return err
	}
	if !marked {
		logger.Debugw("worker_order_placed_skip_duplicate", "submission_id", payload.SubmissionID)
	}
	return nil
}
