package shared

import (
	"github.com/z26b/storefront/internal/apperr"
	"github.com/z26b/storefront/internal/backend"
	"github.com/z26b/storefront/internal/constants"
	"github.com/z26b/storefront/internal/http/response"
	"github.com/z26b/storefront/internal/i18n"
	"github.com/z26b/storefront/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 与会话键的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	kv := make([]interface{}, 0, 4)
	if requestID, ok := c.Get(constants.ContextKeyRequestID); ok {
		if id, ok := requestID.(string); ok && id != "" {
			kv = append(kv, "request_id", id)
		}
	}
	if c.Request != nil {
		if id, ok := backend.IdentityFrom(c.Request.Context()); ok && !id.Empty() {
			kv = append(kv, "session", id.Key())
		}
	}
	if len(kv) == 0 {
		return logger.S()
	}
	return logger.SW(kv...)
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, key string, err error) {
	locale := i18n.ResolveLocale(c)
	msg := i18n.T(locale, key)
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// RespondErrorWithMsg 返回自定义消息错误响应，并在有原始错误时记录日志。
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// RespondAppError 按错误分类返回响应。
func RespondAppError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	LogAppError(c, err)
	response.Error(c, response.CodeForKind(apperr.KindOf(err)), LocalizedMessage(c, err))
}

// LocalizedMessage 中文环境使用业务提示，其他语言使用分类文案；未分类错误不透出细节。
func LocalizedMessage(c *gin.Context, err error) string {
	locale := i18n.ResolveLocale(c)
	if apperr.KindOf(err) == "" {
		return i18n.T(locale, "error.internal")
	}
	msg := apperr.Message(err)
	if locale == i18n.DefaultLocale {
		return msg
	}
	if translated, ok := i18n.Lookup(locale, "error."+string(apperr.KindOf(err))); ok {
		return translated
	}
	return msg
}

// LogAppError 服务端与网络类错误记录 error 日志，其余记录 debug。
func LogAppError(c *gin.Context, err error) {
	appErr := response.FromError(err)
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindServer, apperr.KindTransientNetwork, "":
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"kind", kind,
			"message", appErr.Message,
			"error", err,
		)
	default:
		RequestLog(c).Debugw("handler_rejected",
			"code", appErr.Code,
			"kind", kind,
			"message", appErr.Message,
		)
	}
}
