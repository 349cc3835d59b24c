package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/weiwangfds/reelfolio/internal/i18n"
)

// ErrorCode 错误码类型
type ErrorCode int

// 定义错误码常量
const (
	// 通用错误码 (1000-1999)
	ErrSuccess        ErrorCode = 0    // 成功
	ErrInternalServer ErrorCode = 1000 // 服务器内部错误
	ErrInvalidParams  ErrorCode = 1001 // 参数错误
	ErrUnauthorized   ErrorCode = 1002 // 未授权
	ErrForbidden      ErrorCode = 1003 // 禁止访问
	ErrNotFound       ErrorCode = 1004 // 资源未找到

	// 认证相关错误码 (2000-2999)
	ErrInvalidCredentials ErrorCode = 2000 // 登录三元组不匹配, 不区分具体字段
	ErrTokenMissing       ErrorCode = 2001 // 未携带令牌
	ErrTokenInvalid       ErrorCode = 2002 // 令牌无效或已过期
	ErrSecretPathInvalid  ErrorCode = 2003 // 秘密路径不存在
	ErrFieldsRequired     ErrorCode = 2004 // 登录字段缺失

	// 上传与存储相关错误码 (3000-3999)
	ErrUnsupportedMediaType        ErrorCode = 3000 // 文件类型不允许
	ErrPayloadTooLarge             ErrorCode = 3001 // 文件大小超限
	ErrStorageWrite                ErrorCode = 3002 // 写入存储失败
	ErrStorageDelete               ErrorCode = 3003 // 删除存储对象失败
	ErrStorageResolve              ErrorCode = 3004 // 定位存储对象失败
	ErrStorageConfig               ErrorCode = 3005 // 存储配置无效
	ErrStorageProviderNotSupported ErrorCode = 3006 // 存储提供商不支持

	// 数据库相关错误码 (4000-4999)
	ErrDatabaseConnection ErrorCode = 4000 // 数据库连接错误
	ErrDatabaseQuery      ErrorCode = 4001 // 数据库查询错误
	ErrDatabaseInsert     ErrorCode = 4002 // 数据库插入错误
	ErrDatabaseUpdate     ErrorCode = 4003 // 数据库更新错误
	ErrDatabaseDelete     ErrorCode = 4004 // 数据库删除错误
	ErrRecordNotFound     ErrorCode = 4006 // 记录未找到
	ErrVideoNotFound      ErrorCode = 4007 // 视频未找到
)

// AppError 应用错误结构体
type AppError struct {
	// 错误码
	Code ErrorCode `json:"code"`
	// 错误消息, 会返回给客户端
	Message string `json:"message"`
	// 详细错误信息, 仅记录日志
	Details string `json:"details,omitempty"`
	// 原始错误
	OriginalError error `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误, 便于 errors.Is / errors.As
func (e *AppError) Unwrap() error {
	return e.OriginalError
}

// HTTPStatus 错误码对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrInvalidParams, ErrFieldsRequired:
		return http.StatusBadRequest
	case ErrUnauthorized, ErrInvalidCredentials, ErrTokenMissing:
		return http.StatusUnauthorized
	case ErrForbidden, ErrTokenInvalid:
		return http.StatusForbidden
	case ErrNotFound, ErrSecretPathInvalid, ErrRecordNotFound, ErrVideoNotFound:
		return http.StatusNotFound
	case ErrUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	case ErrPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// WithDetails 返回带详细信息的副本
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// New 创建新的应用错误, message 为空时使用错误码的默认消息
func New(code ErrorCode, message string) *AppError {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf 创建格式化消息的应用错误
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap 包装原始错误
func Wrap(code ErrorCode, message string, err error) *AppError {
	appErr := New(code, message)
	appErr.OriginalError = err
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	_, ok := GetAppError(err)
	return ok
}

// GetAppError 从错误链中提取应用错误
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode 判断错误链中是否包含指定错误码的应用错误
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Code == code
}

// 错误码到i18n键的映射
var errorCodeToKeyMap = map[ErrorCode]string{
	ErrSuccess:        "success",
	ErrInternalServer: "internal_server_error",
	ErrInvalidParams:  "invalid_params",
	ErrUnauthorized:   "unauthorized",
	ErrForbidden:      "forbidden",
	ErrNotFound:       "not_found",

	ErrInvalidCredentials: "invalid_credentials",
	ErrTokenMissing:       "token_missing",
	ErrTokenInvalid:       "token_invalid",
	ErrSecretPathInvalid:  "secret_path_invalid",
	ErrFieldsRequired:     "fields_required",

	ErrUnsupportedMediaType:        "unsupported_media_type",
	ErrPayloadTooLarge:             "payload_too_large",
	ErrStorageWrite:                "storage_write_failed",
	ErrStorageDelete:               "storage_delete_failed",
	ErrStorageResolve:              "storage_resolve_failed",
	ErrStorageConfig:               "storage_config_invalid",
	ErrStorageProviderNotSupported: "storage_provider_unsupported",

	ErrDatabaseConnection: "database_connection",
	ErrDatabaseQuery:      "database_query",
	ErrDatabaseInsert:     "database_insert",
	ErrDatabaseUpdate:     "database_update",
	ErrDatabaseDelete:     "database_delete",
	ErrRecordNotFound:     "record_not_found",
	ErrVideoNotFound:      "video_not_found",
}

// GetErrorMessage 根据错误码获取错误消息（使用默认语言）
func GetErrorMessage(code ErrorCode) string {
	return GetErrorMessageWithLang(code, i18n.GetInstance().GetDefaultLanguage())
}

// GetErrorMessageWithLang 根据错误码和语言获取错误消息
func GetErrorMessageWithLang(code ErrorCode, lang string) string {
	key, exists := errorCodeToKeyMap[code]
	if !exists {
		key = "unknown_error"
	}
	return i18n.GetInstance().Translate(key, lang)
}
