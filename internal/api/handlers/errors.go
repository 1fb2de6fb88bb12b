package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kshitiz-Mhto/streampipes/internal/api/middleware"
	"github.com/Kshitiz-Mhto/streampipes/internal/services"
	"github.com/Kshitiz-Mhto/streampipes/pkg/database"
	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

// respondError 서비스 에러를 HTTP 응답으로 변환
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrPipelineNotFound), errors.Is(err, database.ErrNotFound):
		middleware.ErrorResponseWithCode(c, http.StatusNotFound, models.ErrCodeNotFound, err.Error())
	case errors.Is(err, database.ErrConflict):
		middleware.ErrorResponseWithCode(c, http.StatusConflict, models.ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrInvalidPipeline):
		middleware.ErrorResponseWithCode(c, http.StatusBadRequest, models.ErrCodeValidationFailed, err.Error())
	default:
		logger.Error("Request failed", "path", c.FullPath(), "request_id", middleware.GetRequestID(c), "error", err)
		middleware.ErrorResponseWithCode(c, http.StatusInternalServerError, models.ErrCodeDatabaseError, err.Error())
	}
}

// bindJSON 요청 본문 디코딩, 실패 시 400 응답 후 false 반환
func bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		middleware.ErrorResponseWithCode(c, http.StatusBadRequest, models.ErrCodeInvalidJSON, err.Error())
		return false
	}
	return true
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
