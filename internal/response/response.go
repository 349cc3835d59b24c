// Package response 统一HTTP响应输出
// 成功响应直接返回业务负载 (例如 {"videos": [...]})，
// 失败响应统一为 {"error": 消息, "code": 错误码, "request_id": ...}
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/weiwangfds/reelfolio/internal/errors"
	"github.com/weiwangfds/reelfolio/internal/logger"
)

// ErrorBody 错误响应结构体
type ErrorBody struct {
	// 错误消息
	Error string `json:"error"`
	// 业务错误码
	Code int `json:"code,omitempty"`
	// 请求ID，用于链路追踪
	RequestID string `json:"request_id,omitempty"`
}

// Success 200成功响应
func Success(c *gin.Context, payload gin.H) {
	c.JSON(http.StatusOK, payload)
}

// Created 201成功响应
func Created(c *gin.Context, payload gin.H) {
	c.JSON(http.StatusCreated, payload)
}

// SuccessWithMessage 只带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// Error 将错误转换为HTTP响应
// AppError 按错误码映射状态码，其它错误一律视为500且不向客户端暴露细节
func Error(c *gin.Context, err error) {
	appErr, ok := apperrors.GetAppError(err)
	if !ok {
		logger.WithField("request_id", getRequestID(c)).Errorf("未处理的错误: %v", err)
		appErr = apperrors.New(apperrors.ErrInternalServer, "")
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.WithField("request_id", getRequestID(c)).Errorf("请求失败: %v", appErr)
	}
	write(c, status, int(appErr.Code), appErr.Message)
}

// Abort 输出错误响应并终止后续处理器, 供中间件使用
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

func write(c *gin.Context, status, code int, message string) {
	c.JSON(status, ErrorBody{
		Error:     message,
		Code:      code,
		RequestID: getRequestID(c),
	})
}

// getRequestID 从gin上下文中获取请求ID
func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}
