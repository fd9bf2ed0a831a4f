// Package i18n 接口提示文案的多语言支持。
package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	LocaleZhCN = "zh-CN"
	LocaleZhTW = "zh-TW"
	LocaleEnUS = "en-US"

	DefaultLocale = LocaleZhCN
)

var messages = map[string]map[string]string{
	LocaleZhCN: {
		"error.bad_request":         "请求参数错误",
		"error.unauthorized":        "请先登录",
		"error.login_expired":       "登录已过期，请重新登录",
		"error.too_many_requests":   "请求过于频繁，请稍后重试",
		"error.internal":            "服务器错误，请稍后重试",
		"error.not_found":           "请求的资源不存在",
		"error.quantity_invalid":    "商品数量无效",
		"error.cart_item_invalid":   "购物车商品不存在",
		"error.address_invalid":     "地址不存在",
		"error.order_id_invalid":    "订单不存在",
		"error.sku_invalid":         "商品规格不存在",
		"error.journal_disabled":    "下单记录未启用",
		"error.validation":          "参数错误",
		"error.empty_selection":     "购物车中没有选中的商品",
		"error.missing_address":     "请添加收货地址",
		"error.transient_network":   "网络连接失败，请检查网络",
		"error.server":              "服务器错误，请稍后重试",
		"error.rate_limited":        "请求过于频繁，请稍后重试",
		"error.rejected":            "请求失败",
		"error.rate_limit_wait":     "操作过于频繁，请 %d 秒后再试",
		"error.rate_limit_down":     "限流服务暂不可用",
		"message.cart_item_removed": "已删除",
		"message.order_submitted":   "下单成功",
	},
	LocaleZhTW: {
		"error.bad_request":         "請求參數錯誤",
		"error.unauthorized":        "請先登入",
		"error.login_expired":       "登入已過期，請重新登入",
		"error.too_many_requests":   "請求過於頻繁，請稍後重試",
		"error.internal":            "伺服器錯誤，請稍後重試",
		"error.not_found":           "請求的資源不存在",
		"error.quantity_invalid":    "商品數量無效",
		"error.cart_item_invalid":   "購物車商品不存在",
		"error.address_invalid":     "地址不存在",
		"error.order_id_invalid":    "訂單不存在",
		"error.sku_invalid":         "商品規格不存在",
		"error.journal_disabled":    "下單記錄未啟用",
		"error.validation":          "參數錯誤",
		"error.empty_selection":     "購物車中沒有選中的商品",
		"error.missing_address":     "請新增收貨地址",
		"error.transient_network":   "網路連線失敗，請檢查網路",
		"error.server":              "伺服器錯誤，請稍後重試",
		"error.rate_limited":        "請求過於頻繁，請稍後重試",
		"error.rejected":            "請求失敗",
		"error.rate_limit_wait":     "操作過於頻繁，請 %d 秒後再試",
		"error.rate_limit_down":     "限流服務暫不可用",
		"message.cart_item_removed": "已刪除",
		"message.order_submitted":   "下單成功",
	},
	LocaleEnUS: {
		"error.bad_request":         "Invalid request",
		"error.unauthorized":        "Please sign in first",
		"error.login_expired":       "Session expired, please sign in again",
		"error.too_many_requests":   "Too many requests, please try again later",
		"error.internal":            "Server error, please try again later",
		"error.not_found":           "Resource not found",
		"error.quantity_invalid":    "Invalid quantity",
		"error.cart_item_invalid":   "Cart item not found",
		"error.address_invalid":     "Address not found",
		"error.order_id_invalid":    "Order not found",
		"error.sku_invalid":         "SKU not found",
		"error.journal_disabled":    "Checkout history is disabled",
		"error.validation":          "Invalid parameters",
		"error.empty_selection":     "No items selected in cart",
		"error.missing_address":     "Please add a shipping address",
		"error.transient_network":   "Network error, please check your connection",
		"error.server":              "Server error, please try again later",
		"error.rate_limited":        "Too many requests, please try again later",
		"error.rejected":            "Request failed",
		"error.rate_limit_wait":     "Too many requests, please retry in %d seconds",
		"error.rate_limit_down":     "Rate limiter unavailable",
		"message.cart_item_removed": "Removed",
		"message.order_submitted":   "Order placed",
	},
}

// T 翻译文案，缺失时回退到默认语言，仍缺失则返回 key
func T(locale, key string) string {
	if msg, ok := Lookup(locale, key); ok {
		return msg
	}
	return key
}

// Lookup 查找文案，找不到时 ok 为 false
func Lookup(locale, key string) (string, bool) {
	if table, ok := messages[NormalizeLocale(locale)]; ok {
		if msg, ok := table[key]; ok {
			return msg, true
		}
	}
	msg, ok := messages[DefaultLocale][key]
	return msg, ok
}

// Sprintf 翻译并格式化
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

// NormalizeLocale 归一化语言标识
func NormalizeLocale(locale string) string {
	normalized := strings.ToLower(strings.TrimSpace(locale))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	switch {
	case normalized == "":
		return DefaultLocale
	case normalized == "zh-tw" || normalized == "zh-hk" || strings.HasPrefix(normalized, "zh-hant"):
		return LocaleZhTW
	case strings.HasPrefix(normalized, "zh"):
		return LocaleZhCN
	case strings.HasPrefix(normalized, "en"):
		return LocaleEnUS
	default:
		return DefaultLocale
	}
}

// ResolveLocale 从请求中解析语言：X-Locale 优先，其次 Accept-Language
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	if locale := strings.TrimSpace(c.GetHeader("X-Locale")); locale != "" {
		return NormalizeLocale(locale)
	}
	accept := c.GetHeader("Accept-Language")
	if accept == "" {
		return DefaultLocale
	}
	first := strings.Split(accept, ",")[0]
	first = strings.Split(first, ";")[0]
	return NormalizeLocale(first)
}
