package provider

import (
	"context"
	"strings"

	"github.com/z26b/storefront/internal/backend"
	"github.com/z26b/storefront/internal/cache"
	"github.com/z26b/storefront/internal/config"
	"github.com/z26b/storefront/internal/logger"
	"github.com/z26b/storefront/internal/models"
	"github.com/z26b/storefront/internal/queue"
	"github.com/z26b/storefront/internal/ratelimit"
	"github.com/z26b/storefront/internal/repository"
	"github.com/z26b/storefront/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config        *config.Config
	QueueClient   *queue.Client
	BackendClient *backend.Client
	JournalDB     *gorm.DB

	AddGuard      ratelimit.Guard
	SubmitGuard   ratelimit.Guard
	SnapshotStore service.SnapshotStore

	// Repositories
	CartRepo            repository.CartRepository
	SkuRepo             repository.SkuRepository
	AddressRepo         repository.AddressRepository
	OrderRepo           repository.OrderRepository
	CheckoutAttemptRepo repository.CheckoutAttemptRepository

	// Services
	ImageResolver      *service.ImageResolver
	CartInvalidator    service.CartInvalidator
	CartService        *service.CartService
	CartSessionService *service.CartSessionService
	CheckoutService    *service.CheckoutService
	OrderSubmitter     *service.OrderSubmitter
	AddressService     *service.AddressService
	OrderQueryService  *service.OrderQueryService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化基础组件
	c.initInfrastructure()

	// 2. 初始化 Repositories
	c.initRepositories()

	// 3. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initInfrastructure() {
	cfg := c.Config
	if cache.Enabled() {
		c.SnapshotStore = cache.NewRedisSnapshotStore(cfg.SnapshotTTL())
	} else {
		c.SnapshotStore = cache.NewMemorySnapshotStore(cfg.SnapshotTTL())
	}

	c.BackendClient = backend.NewClient(backend.Options{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Backend.Timeout(),
		DevMode:   cfg.Backend.DevMode,
		DevOpenID: cfg.Backend.DevOpenID,
		OnUnauthorized: func(ctx context.Context, id backend.Identity) {
			logger.ForSession(id.Key()).Warnw("backend_unauthorized")
			if err := c.SnapshotStore.Invalidate(ctx, id.Key()); err != nil {
				logger.Warnw("provider_snapshot_invalidate_failed", "error", err)
			}
		},
	})

	useRedisGuard := strings.EqualFold(strings.TrimSpace(cfg.Cart.Guard), "redis") && cache.Enabled()
	if cfg.Cart.Guard == "redis" && !useRedisGuard {
		logger.Warnw("provider_redis_guard_unavailable", "fallback", "local")
	}
	if useRedisGuard {
		prefix := cache.Prefix() + ":guard"
		c.AddGuard = ratelimit.NewRedisGuard(cache.Client(), prefix, cfg.AddCooldown())
		c.SubmitGuard = ratelimit.NewRedisGuard(cache.Client(), prefix, cfg.SubmitCooldown())
	} else {
		c.AddGuard = ratelimit.NewLocalGuard(cfg.AddCooldown())
		c.SubmitGuard = ratelimit.NewLocalGuard(cfg.SubmitCooldown())
	}

	if cfg.Checkout.JournalEnabled {
		db, err := models.OpenDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
			MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
			MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
			ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
			ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
		}, cfg.Server.Mode == "debug")
		if err != nil {
			logger.Errorw("provider_open_journal_db_failed", "driver", cfg.Database.Driver, "error", err)
			return
		}
		if err := models.AutoMigrate(db); err != nil {
			logger.Errorw("provider_migrate_journal_db_failed", "error", err)
			return
		}
		c.JournalDB = db
	}
}

func (c *Container) initRepositories() {
	client := c.BackendClient
	c.CartRepo = repository.NewCartRepository(client)
	c.SkuRepo = repository.NewSkuRepository(client)
	c.AddressRepo = repository.NewAddressRepository(client)
	c.OrderRepo = repository.NewOrderRepository(client)
	if c.JournalDB != nil {
		c.CheckoutAttemptRepo = repository.NewCheckoutAttemptRepository(c.JournalDB)
	}
}

func (c *Container) initServices() {
	cfg := c.Config
	c.ImageResolver = service.NewImageResolver(cfg.Backend.ImageBaseURL)
	c.CartInvalidator = service.NewSnapshotInvalidator(c.SnapshotStore, c.QueueClient)
	c.CartService = service.NewCartService(c.CartRepo, c.SkuRepo, c.ImageResolver, service.CartServiceOptions{
		MaxQuantity:        cfg.Cart.MaxQuantity,
		ResolveConcurrency: cfg.Cart.ResolveConcurrency,
		UpdateDebounce:     cfg.UpdateDebounce(),
		AddGuard:           c.AddGuard,
	})
	c.CartSessionService = service.NewCartSessionService(c.CartService, c.SnapshotStore, c.CartInvalidator)
	c.CheckoutService = service.NewCheckoutService(c.CartRepo, c.SkuRepo, c.AddressRepo, c.ImageResolver, cfg.Cart.MaxQuantity, cfg.Cart.ResolveConcurrency)
	c.OrderSubmitter = service.NewOrderSubmitter(c.CheckoutService, c.CartService, c.OrderRepo, c.CartInvalidator, service.OrderSubmitterOptions{
		SubmitGuard:     c.SubmitGuard,
		RemarkMaxLength: cfg.Checkout.RemarkMaxLength,
		Concurrency:     cfg.Cart.ResolveConcurrency,
		Journal:         c.CheckoutAttemptRepo,
		QueueClient:     c.QueueClient,
	})
	c.AddressService = service.NewAddressService(c.AddressRepo)
	c.OrderQueryService = service.NewOrderQueryService(c.OrderRepo, c.ImageResolver)
}

// Close 释放资源：提交未发送的数量修改后关闭队列与缓存
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.CartService != nil {
		c.CartService.Flush()
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
	if c.JournalDB != nil {
		if sqlDB, err := c.JournalDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
