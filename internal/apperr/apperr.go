// Package apperr 定义购物车与结算流程的统一错误分类。
package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind string

const (
	KindValidation       Kind = "validation"
	KindEmptySelection   Kind = "empty_selection"
	KindMissingAddress   Kind = "missing_address"
	KindTransientNetwork Kind = "transient_network"
	KindServer           Kind = "server"
	KindNotFound         Kind = "not_found"
	KindRateLimited      Kind = "rate_limited"
	KindUnauthorized     Kind = "unauthorized"
	KindRejected         Kind = "rejected"
)

// 面向用户的默认提示
const (
	MsgTimeout        = "请求超时，请检查网络连接"
	MsgNetwork        = "网络连接失败，请检查网络"
	MsgServer         = "服务器错误，请稍后重试"
	MsgNotFound       = "请求的资源不存在"
	MsgRateLimited    = "请求过于频繁，请稍后重试"
	MsgUnauthorized   = "未授权，请重新登录"
	MsgLoginRequired  = "请先登录"
	MsgTooFrequent    = "操作过于频繁，请稍后重试"
	MsgSubmitting     = "订单提交中，请勿重复操作"
	MsgEmptySelection = "购物车中没有选中的商品"
	MsgNoSelection    = "请选择商品"
	MsgMissingAddress = "请添加收货地址"
)

// Error 带分类的业务错误
type Error struct {
	Kind    Kind
	Message string
	// Status 远端返回的 HTTP 状态码，本地校验错误为 0
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 按类别匹配，支持 errors.Is(err, apperr.ErrValidation)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation       = &Error{Kind: KindValidation, Message: "参数错误"}
	ErrEmptySelection   = &Error{Kind: KindEmptySelection, Message: MsgEmptySelection}
	ErrMissingAddress   = &Error{Kind: KindMissingAddress, Message: MsgMissingAddress}
	ErrTransientNetwork = &Error{Kind: KindTransientNetwork, Message: MsgNetwork}
	ErrServer           = &Error{Kind: KindServer, Message: MsgServer}
	ErrNotFound         = &Error{Kind: KindNotFound, Message: MsgNotFound}
	ErrRateLimited      = &Error{Kind: KindRateLimited, Message: MsgRateLimited}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized, Message: MsgUnauthorized}
	ErrRejected         = &Error{Kind: KindRejected, Message: "请求失败"}
)

// New 创建指定类别的错误
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap 包装底层错误
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation 参数校验错误
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// Validationf 格式化参数校验错误
func Validationf(format string, args ...interface{}) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

// RateLimited 本地限流错误
func RateLimited(message string) *Error {
	return New(KindRateLimited, message)
}

// KindOf 返回错误类别，非业务错误返回空字符串
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message 返回面向用户的提示
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsRetryable 网络抖动与服务端错误允许用户手动重试
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransientNetwork, KindServer:
		return true
	default:
		return false
	}
}
