package util

import (
	"coder_edu_assessment/internal/apperr"
	"coder_edu_assessment/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Kind    string      `json:"kind,omitempty"`
	Field   string      `json:"field,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    http.StatusBadRequest,
		Message: message,
		Kind:    string(apperr.KindValidation),
	})
}

// StatusFor 业务错误类别到 HTTP 状态码
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindUnpublished, apperr.KindAttemptLimit:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindPermission:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RespondError 把服务层错误写成统一响应；持久化错误只记日志，不向客户端暴露底层原因
func RespondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Persistence("request", err)
	}

	status := StatusFor(appErr.Kind)
	message := appErr.Error()
	if appErr.Kind == apperr.KindPersistence {
		logger.Log.Error("Internal server error",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		message = "Internal server error"
	}

	c.JSON(status, Response{
		Code:    status,
		Message: message,
		Kind:    string(appErr.Kind),
		Field:   appErr.Field,
	})
}
