// Package security 提供用户输入清洗、校验与日志脱敏工具。
package security

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/z26b/storefront/internal/apperr"
)

// DefaultMaxQuantity 单个购物车项数量上限
const DefaultMaxQuantity = 99

var (
	scriptTagPattern    = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)
	strayScriptPattern  = regexp.MustCompile(`(?i)</?script\b[^>]*>`)
	eventHandlerPattern = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	jsSchemePattern     = regexp.MustCompile(`(?i)javascript:`)
	dataSchemePattern   = regexp.MustCompile(`(?i)data:`)
	phonePattern        = regexp.MustCompile(`^1[3-9]\d{9}$`)
	namePattern         = regexp.MustCompile(`^[\p{Han}a-zA-Z0-9]+$`)
)

// SanitizeInput 去除首尾空白、script 标签、on* 事件属性以及 javascript:/data: 协议。
// 反复替换直到结果不再变化，嵌套拼接的内容不会在删除后重新组成危险片段
func SanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	for {
		next := scriptTagPattern.ReplaceAllString(s, "")
		next = strayScriptPattern.ReplaceAllString(next, "")
		next = eventHandlerPattern.ReplaceAllString(next, "")
		next = jsSchemePattern.ReplaceAllString(next, "")
		next = dataSchemePattern.ReplaceAllString(next, "")
		if next == s {
			return strings.TrimSpace(s)
		}
		s = next
	}
}

// ValidateQuantity 数量必须在 [1, max] 之间
func ValidateQuantity(quantity, max int) error {
	if max <= 0 {
		max = DefaultMaxQuantity
	}
	if quantity < 1 {
		return apperr.Validation("数量至少为1")
	}
	if quantity > max {
		return apperr.Validationf("数量不能超过%d", max)
	}
	return nil
}

// ParseQuantity 解析并校验数量，非整数视为无效
func ParseQuantity(raw string, max int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperr.Validation("请输入有效数量")
	}
	if err := ValidateQuantity(n, max); err != nil {
		return 0, err
	}
	return n, nil
}

// IsValidPhone 中国大陆手机号
func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(strings.TrimSpace(phone))
}

// ValidateName 收件人姓名：2-20 个中文、英文或数字
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return apperr.Validation("姓名不能为空")
	}
	n := utf8.RuneCountInString(trimmed)
	if n < 2 {
		return apperr.Validation("姓名至少2个字符")
	}
	if n > 20 {
		return apperr.Validation("姓名不能超过20个字符")
	}
	if !namePattern.MatchString(trimmed) {
		return apperr.Validation("姓名只能包含中文、英文和数字")
	}
	return nil
}

// ValidateAddress 详细地址：5-200 个字符
func ValidateAddress(address string) error {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return apperr.Validation("地址不能为空")
	}
	n := utf8.RuneCountInString(trimmed)
	if n < 5 {
		return apperr.Validation("请输入详细地址")
	}
	if n > 200 {
		return apperr.Validation("地址不能超过200个字符")
	}
	return nil
}

// CleanRemark 清洗订单备注并校验长度
func CleanRemark(remark string, maxLength int) (string, error) {
	cleaned := SanitizeInput(remark)
	if maxLength > 0 && utf8.RuneCountInString(cleaned) > maxLength {
		return "", apperr.Validation(fmt.Sprintf("备注不能超过%d个字符", maxLength))
	}
	return cleaned, nil
}

// MaskPhone 手机号脱敏（保留前 3 后 4）
func MaskPhone(phone string) string {
	if len(phone) != 11 {
		return phone
	}
	return phone[:3] + "****" + phone[7:]
}

// MaskName 姓名脱敏（只保留首字）
func MaskName(name string) string {
	runes := []rune(name)
	if len(runes) < 2 {
		return name
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-1)
}

// MaskAddress 地址脱敏（保留前 20 个字符）
func MaskAddress(address string) string {
	runes := []rune(address)
	if len(runes) < 10 {
		return address
	}
	if len(runes) > 20 {
		runes = runes[:20]
	}
	return string(runes) + "****"
}
