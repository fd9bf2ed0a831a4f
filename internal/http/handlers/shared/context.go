package shared

import (
	"context"

	"github.com/z26b/storefront/internal/backend"

	"github.com/gin-gonic/gin"
)

// RequestContext 请求上下文（包含调用方身份）。
func RequestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

// SetIdentity 将调用方身份写入请求上下文。
func SetIdentity(c *gin.Context, id backend.Identity) {
	if c == nil || c.Request == nil {
		return
	}
	c.Request = c.Request.WithContext(backend.WithIdentity(c.Request.Context(), id))
}
