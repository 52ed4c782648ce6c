package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shopnotify/internal/constants"
	"shopnotify/internal/service"
)

// ErrorResponse 统一错误响应体
type ErrorResponse struct {
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// statusOf 将服务层错误映射为HTTP状态码
func statusOf(err error) int {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrTemplateTitleUnparsed):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrStoreNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrWorkspaceNotFound),
		errors.Is(err, service.ErrEventHistoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientCredit):
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{
		Status:    status,
		Message:   message,
		Path:      c.Request.URL.Path,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// respondServiceError 内部错误不向调用方暴露细节
func respondServiceError(c *gin.Context, err error) {
	status := statusOf(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = constants.ErrInternalServer
	}
	respondError(c, status, message)
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"code":    status,
		"message": message,
		"data":    data,
	})
}
