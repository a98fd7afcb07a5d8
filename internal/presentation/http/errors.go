package http

import (
	"errors"
	"net/http"

	"github.com/GabrielFerreiraTelles/comu/internal/domain/entities"
	"github.com/GabrielFerreiraTelles/comu/internal/logger"
	"github.com/GabrielFerreiraTelles/comu/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorStatus 错误分类到 HTTP 状态码与机器可读的 code。
// 顺序有意义：宽限期、屏蔽词、拉黑都包裹了 ErrPermissionDenied，须先判断。
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, entities.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, entities.ErrEditWindowExpired):
		return http.StatusGone, "edit_window_expired"
	case errors.Is(err, entities.ErrBlockedWord):
		return http.StatusForbidden, "blocked_word"
	case errors.Is(err, entities.ErrUserBlocked):
		return http.StatusForbidden, "user_blocked"
	case errors.Is(err, entities.ErrPermissionDenied):
		return http.StatusForbidden, "permission_denied"
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, entities.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, entities.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, entities.ErrTransientStore):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// ErrorCode 只取 code
func ErrorCode(err error) string {
	_, code := ErrorStatus(err)
	return code
}

func fail(c *gin.Context, err error) {
	status, code := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.L().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, models.ErrorBody{Error: err.Error(), Code: code})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorBody{Error: err.Error(), Code: "invalid_argument"})
}
