package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/d60-Lab/chatsync/pkg/errors"
	"github.com/d60-Lab/chatsync/pkg/logger"
)

// internalMessage 5xx 只返回固定文案，原因写日志
const internalMessage = "internal server error"

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func write(c *gin.Context, status int, msg string, data interface{}) {
	c.JSON(status, Response{Code: status, Message: msg, Data: data})
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// Created 创建成功
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "success", Data: data})
}

func BadRequest(c *gin.Context, msg string) { write(c, http.StatusBadRequest, msg, nil) }

func Unauthorized(c *gin.Context, msg string) { write(c, http.StatusUnauthorized, msg, nil) }

func Forbidden(c *gin.Context, msg string) { write(c, http.StatusForbidden, msg, nil) }

func NotFound(c *gin.Context, msg string) { write(c, http.StatusNotFound, msg, nil) }

func PayloadTooLarge(c *gin.Context, msg string) { write(c, http.StatusRequestEntityTooLarge, msg, nil) }

// TooManyRequests 限流响应，data 里带上重置时间
func TooManyRequests(c *gin.Context, msg string, data interface{}) {
	write(c, http.StatusTooManyRequests, msg, data)
}

// InternalError 服务端错误，错误详情只进日志
func InternalError(c *gin.Context, err error) {
	logger.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	_ = c.Error(err)
	write(c, http.StatusInternalServerError, internalMessage, nil)
}

// Error 按 AppError 的错误码映射 HTTP 状态
func Error(c *gin.Context, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		InternalError(c, err)
		return
	}
	write(c, status, err.Error(), nil)
}

// StatusOf 错误码 -> HTTP 状态
func StatusOf(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeInvalidArgument:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeAlreadyExists:
		return http.StatusConflict
	case apperrors.CodePermissionDenied:
		return http.StatusForbidden
	case apperrors.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.CodeResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
