package router

import (
	"fmt"
	"strings"

	"github.com/z26b/storefront/internal/backend"
	"github.com/z26b/storefront/internal/http/response"
	"github.com/z26b/storefront/internal/i18n"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// RateLimitMiddleware Redis 固定窗口限流中间件，client 为空时不限制
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = fmt.Sprintf("%s:%s", rule.Prefix, key)
		}

		result, err := rateLimitScript.Run(c.Request.Context(), client, []string{key}, rule.WindowSeconds).Result()
		if err != nil {
			response.Error(c, response.CodeServiceUnavailable, i18n.T(i18n.ResolveLocale(c), "error.rate_limit_down"))
			c.Abort()
			return
		}
		values, ok := result.([]interface{})
		if !ok || len(values) < 2 {
			response.Error(c, response.CodeServiceUnavailable, i18n.T(i18n.ResolveLocale(c), "error.rate_limit_down"))
			c.Abort()
			return
		}
		count, ok := toInt64(values[0])
		if !ok {
			response.Error(c, response.CodeServiceUnavailable, i18n.T(i18n.ResolveLocale(c), "error.rate_limit_down"))
			c.Abort()
			return
		}
		ttlSeconds, _ := toInt64(values[1])
		if count > int64(rule.MaxRequests) {
			response.TooManyRequests(c, i18n.Sprintf(i18n.ResolveLocale(c), rateLimitMessageKey(rule), waitSeconds(ttlSeconds, rule.WindowSeconds)))
			c.Abort()
			return
		}

		c.Next()
	}
}

func rateLimitMessageKey(rule RateLimitRule) string {
	if key := strings.TrimSpace(rule.MessageKey); key != "" {
		return key
	}
	return "error.rate_limit_wait"
}

func waitSeconds(ttl int64, window int) int {
	wait := int(ttl)
	if wait < 1 {
		wait = window
	}
	if wait < 1 {
		wait = 1
	}
	return wait
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyBySession 使用会话键作为限流 key，匿名请求退回 IP
func KeyBySession(c *gin.Context) string {
	id, _ := backend.IdentityFrom(c.Request.Context())
	if id.Empty() {
		return "ip:" + c.ClientIP()
	}
	return id.Key()
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case uint32:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
