package app

import (
	"os"
	"time"

	"github.com/z26b/storefront/internal/config"
	"github.com/z26b/storefront/internal/logger"

	"go.uber.org/zap"
)

// 启动模式：api 只提供 BFF 接口，worker 只消费快照预热与下单事件
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		if opts.Config != nil {
			opts.ShutdownTimeout = opts.Config.Server.ShutdownTimeout()
		} else {
			opts.ShutdownTimeout = config.ServerConfig{}.ShutdownTimeout()
		}
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}
