package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/z26b/storefront/internal/app"
	"github.com/z26b/storefront/internal/config"
	"github.com/z26b/storefront/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset     = "\033[0m"
	ansiBold      = "\033[1m"
	ansiDim       = "\033[2m"
	ansiGreen     = "\033[32m"
	ansiCyan      = "\033[36m"
	ansiBrightMag = "\033[95m"
)

func main() {
	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	printStartupBanner(mode)

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if cfg.Server.Mode == "release" {
		if err := checkReleaseConfig(cfg); err != nil {
			stdLog.Fatalf("生产环境配置校验失败: %v", err)
		}
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.Backend.DevMode {
		stdLog.Printf("警告: 开发模式已开启，未携带身份的请求将使用测试 openid %s", cfg.Backend.DevOpenID)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
	logger.Sync()
}

func printStartupBanner(mode string) {
	fmt.Println(ansiBrightMag + "╔════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiBrightMag + "║          Storefront Checkout 启动中          ║" + ansiReset)
	fmt.Println(ansiBrightMag + "╚════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiCyan + ansiBold + "mode: " + mode + ansiReset)
	fmt.Println(ansiGreen + "cart · checkout · orders · addresses" + ansiReset)
	fmt.Println(ansiDim + "----------------------------------------------" + ansiReset)
}

// checkReleaseConfig 生产环境禁止开发模式，且必须配置后端地址
func checkReleaseConfig(cfg *config.Config) error {
	if cfg.Backend.DevMode {
		return errors.New("backend.dev_mode 不能在 release 模式下开启")
	}
	base := strings.ToLower(strings.TrimSpace(cfg.Backend.BaseURL))
	if base == "" {
		return errors.New("backend.base_url 未配置")
	}
	if strings.Contains(base, "localhost") || strings.Contains(base, "127.0.0.1") {
		return fmt.Errorf("backend.base_url 仍指向本机: %s", cfg.Backend.BaseURL)
	}
	return nil
}
