package response

import "github.com/z26b/storefront/internal/apperr"

// AppError 统一错误包装
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeForKind 错误分类对应的业务状态码
func CodeForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return CodeBadRequest
	case apperr.KindEmptySelection:
		return CodeEmptySelection
	case apperr.KindMissingAddress:
		return CodeMissingAddress
	case apperr.KindNotFound:
		return CodeNotFound
	case apperr.KindRateLimited:
		return CodeTooManyRequests
	case apperr.KindUnauthorized:
		return CodeUnauthorized
	case apperr.KindRejected:
		return CodeConflict
	case apperr.KindTransientNetwork:
		return CodeServiceUnavailable
	case apperr.KindServer:
		return CodeBadGateway
	default:
		return CodeInternal
	}
}

// FromError 将业务错误转换为接口错误
func FromError(err error) *AppError {
	return WrapError(CodeForKind(apperr.KindOf(err)), apperr.Message(err), err)
}
