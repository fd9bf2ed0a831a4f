package public

import "github.com/z26b/storefront/internal/provider"

// Handler 小程序端接口处理器入口
// 说明：所有接口都以调用方身份代理到远端商城接口。
type Handler struct {
	*provider.Container
}

// New 创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
