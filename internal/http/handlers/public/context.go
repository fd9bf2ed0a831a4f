package public

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	handlershared "github.com/z26b/storefront/internal/http/handlers/shared"
	"github.com/z26b/storefront/internal/security"

	"github.com/gin-gonic/gin"
)

func requestContext(c *gin.Context) context.Context {
	return handlershared.RequestContext(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondAppError(c *gin.Context, err error) {
	handlershared.RespondAppError(c, err)
}

func parsePagination(c *gin.Context) (int, int) {
	return handlershared.ParsePagination(c)
}

// pathID 读取路径参数，空值时返回 false
func pathID(c *gin.Context, name string) (string, bool) {
	id := strings.TrimSpace(c.Param(name))
	return id, id != ""
}

// queryBool 解析布尔查询参数，无法解析时返回 fallback
func queryBool(c *gin.Context, name string, fallback bool) bool {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

// quantityField 数量字段，兼容数字与字符串两种写法
type quantityField struct {
	raw string
	set bool
}

// UnmarshalJSON 只保留原始文本，校验放在 Parse 中进行
func (q *quantityField) UnmarshalJSON(b []byte) error {
	text := strings.TrimSpace(string(b))
	if text == "" || text == "null" {
		return nil
	}
	if text[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		text = s
	}
	q.raw = text
	q.set = true
	return nil
}

// Parse 严格解析为 [1, max] 内的整数
func (q quantityField) Parse(max int) (int, error) {
	return security.ParseQuantity(q.raw, max)
}

func localizedMessage(c *gin.Context, err error) string {
	return handlershared.LocalizedMessage(c, err)
}

func respondAppErrorLog(c *gin.Context, err error) {
	handlershared.LogAppError(c, err)
}
