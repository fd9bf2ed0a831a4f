package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/z26b/storefront/internal/config"
	"github.com/z26b/storefront/internal/logger"
)

const bffServiceName = "bff-http"

// HTTPService 对外 BFF 接口服务
type HTTPService struct {
	server *http.Server
}

// NewHTTPService 按 server 配置创建 BFF 接口服务
func NewHTTPService(cfg config.ServerConfig, handler http.Handler) *HTTPService {
	return &HTTPService{
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout(),
		},
	}
}

// Name 服务名称
func (s *HTTPService) Name() string {
	return bffServiceName
}

// Addr 监听地址
func (s *HTTPService) Addr() string {
	if s == nil || s.server == nil {
		return ""
	}
	return s.server.Addr
}

// Start 开始监听，收到 Stop 后正常返回
func (s *HTTPService) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("bff http server not initialized")
	}
	logger.Infow("bff_http_listen", "service", bffServiceName, "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 停止接收新请求并等待进行中的请求结束（含下单提交）
func (s *HTTPService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	logger.Infow("bff_http_stopped", "service", bffServiceName, "addr", s.server.Addr, "error", err)
	return err
}
