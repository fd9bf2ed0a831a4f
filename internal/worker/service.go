package worker

import (
	"context"
	"errors"
	"time"

	"github.com/z26b/storefront/internal/config"
	"github.com/z26b/storefront/internal/logger"
	"github.com/z26b/storefront/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	journalPruneInterval = time.Hour
)

// Service 异步队列服务
type Service struct {
	name      string
	server    *asynq.Server
	mux       *asynq.ServeMux
	consumer  *Consumer
	retention time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer, retention time.Duration) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:      "worker",
		server:    server,
		mux:       mux,
		consumer:  consumer,
		retention: retention,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.CheckoutAttemptRepo != nil && s.retention > 0 {
		go s.runJournalPruneLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

func (s *Service) runJournalPruneLoop(ctx context.Context) {
	runOnce := func() {
		deleted, err := s.consumer.PruneJournal(s.retention)
		if err != nil {
			logger.Warnw("worker_journal_prune_failed", "error", err)
			return
		}
		if deleted > 0 {
			logger.Infow("worker_journal_pruned", "deleted", deleted)
		}
	}
	runOnce()

	ticker := time.NewTicker(journalPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// PruneJournal 清理超过保留期的下单流水
func (c *Consumer) PruneJournal(retention time.Duration) (int64, error) {
	if c == nil || c.CheckoutAttemptRepo == nil || retention <= 0 {
		return 0, nil
	}
	return c.CheckoutAttemptRepo.DeleteFinishedBefore(c.now().Add(-retention))
}
