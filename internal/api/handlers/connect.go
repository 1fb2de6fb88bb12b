package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kshitiz-Mhto/streampipes/internal/api/middleware"
	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
	"github.com/Kshitiz-Mhto/streampipes/pkg/schema"
)

// ConnectHandler 어댑터 스키마 추론 핸들러
type ConnectHandler struct{}

// NewConnectHandler 새 핸들러 생성
func NewConnectHandler() *ConnectHandler {
	return &ConnectHandler{}
}

// GuessSchema 샘플 이벤트로 이벤트 스키마 추론
func (h *ConnectHandler) GuessSchema(c *gin.Context) {
	var adapter models.AdapterDescription
	if !bindJSON(c, &adapter) {
		return
	}

	var samples []map[string]any
	if adapter.DataSet != nil {
		samples = adapter.DataSet.SampleEvents
	}

	eventSchema, err := schema.Infer(samples)
	if err != nil {
		middleware.ErrorResponseWithCode(c, http.StatusBadRequest, models.ErrCodeBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, eventSchema)
}
